package errs

import "errors"

// Kind groups domain errors by how the boundary should treat them.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindStateConflict     Kind = "state_conflict"
	KindGateway           Kind = "gateway"
	KindNotFound          Kind = "not_found"
)

// Error is a typed domain error. Sentinels below are compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	// Validation
	ErrInvalidParameters      = New(KindValidation, "INVALID_PARAMETERS", "missing or invalid pricing parameters")
	ErrUnsupportedScene       = New(KindValidation, "UNSUPPORTED_SCENE", "unsupported booking scene")
	ErrMissingGateway         = New(KindValidation, "MISSING_GATEWAY", "payment gateway is required for the remaining amount")
	ErrNoPointsPrice          = New(KindValidation, "NO_POINTS_PRICE", "booking has no points price")
	ErrCouponKidsMismatch     = New(KindValidation, "COUPON_KIDS_COUNT_MISMATCH", "kids count does not match coupon kids count")
	ErrUnsupportedBalanceGrp  = New(KindValidation, "UNSUPPORTED_BALANCE_GROUP", "balance group is not offered by this card type")
	ErrCardNotOwned           = New(KindValidation, "CARD_NOT_OWNED", "card does not belong to customer")
	ErrCardStoreNotApplicable = New(KindValidation, "CARD_STORE_NOT_APPLICABLE", "card is not valid in this store")
	ErrInvalidNotify          = New(KindValidation, "INVALID_NOTIFY", "malformed gateway notification")

	// Insufficient funds
	ErrInsufficientBalance          = New(KindInsufficientFunds, "INSUFFICIENT_BALANCE", "insufficient balance")
	ErrInsufficientCardTimes        = New(KindInsufficientFunds, "INSUFFICIENT_CARD_TIMES", "insufficient card times")
	ErrInsufficientPoints           = New(KindInsufficientFunds, "INSUFFICIENT_POINTS", "insufficient points")
	ErrInsufficientBalanceForRefund = New(KindInsufficientFunds, "INSUFFICIENT_BALANCE_FOR_REFUND", "customer balance cannot absorb card refund")

	// State conflicts
	ErrCardNotStarted        = New(KindStateConflict, "CARD_NOT_STARTED", "card is not valid yet")
	ErrCardExpired           = New(KindStateConflict, "CARD_EXPIRED", "card has expired")
	ErrCardNotActivated      = New(KindStateConflict, "CARD_NOT_ACTIVATED", "card is not activated")
	ErrStoreLimitExceeded    = New(KindStateConflict, "STORE_LIMIT_EXCEEDED", "store daily kids limit exceeded")
	ErrEventFull             = New(KindStateConflict, "EVENT_FULL", "event has no seats left")
	ErrGiftOutOfStock        = New(KindStateConflict, "GIFT_OUT_OF_STOCK", "gift is out of stock")
	ErrGiftQuantityLimit     = New(KindStateConflict, "GIFT_QUANTITY_LIMIT", "gift quantity per customer exceeded")
	ErrAlreadyRefunded       = New(KindStateConflict, "ALREADY_REFUNDED", "payment already refunded")
	ErrInvalidTransition     = New(KindStateConflict, "INVALID_STATUS_TRANSITION", "operation not allowed in current status")
	ErrCardRefundNotPossible = New(KindStateConflict, "CARD_REFUND_NOT_POSSIBLE", "card cannot be refunded in current status")
	ErrLocked                = New(KindStateConflict, "RESOURCE_LOCKED", "resource is being settled by another request")

	// Gateway
	ErrGateway          = New(KindGateway, "GATEWAY_ERROR", "payment gateway failure")
	ErrInvalidSignature = New(KindGateway, "INVALID_SIGNATURE", "invalid gateway signature")
	ErrUnknownGateway   = New(KindGateway, "UNKNOWN_GATEWAY", "payment gateway is not configured")

	// Not found
	ErrBookingNotFound      = New(KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrCardNotFound         = New(KindNotFound, "CARD_NOT_FOUND", "card not found")
	ErrCardTypeNotFound     = New(KindNotFound, "CARD_TYPE_NOT_FOUND", "card type not found")
	ErrPaymentNotFound      = New(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrCustomerNotFound     = New(KindNotFound, "CUSTOMER_NOT_FOUND", "customer not found")
	ErrStoreNotFound        = New(KindNotFound, "STORE_NOT_FOUND", "store not found")
	ErrEventNotFound        = New(KindNotFound, "EVENT_NOT_FOUND", "event not found")
	ErrGiftNotFound         = New(KindNotFound, "GIFT_NOT_FOUND", "gift not found")
	ErrCouponNotFound       = New(KindNotFound, "COUPON_NOT_FOUND", "coupon not found")
	ErrStaffNotFound        = New(KindNotFound, "STAFF_NOT_FOUND", "staff member not found")
	ErrNotificationNotFound = New(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
)
