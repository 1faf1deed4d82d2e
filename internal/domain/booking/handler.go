package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/middleware"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateBooking
// @Summary Create a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "booking"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if errors := validator.Validate(req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", errors)
		return
	}

	customerID := c.GetString("user_id")
	if middleware.IsStaff(c) {
		customerID = req.CustomerID
	}

	b, err := h.service.Create(c.Request.Context(), req.input(customerID))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

// GetBooking
// @Summary Get a booking with its payments
// @Tags Bookings
// @Produce json
// @Param id path string true "booking id"
// @Router /api/v1/bookings/{id} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	ps, err := h.service.Payments(c.Request.Context(), b.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": BookingResponse{Booking: b, Payments: ps}})
}

// GetPrice recomputes the price of a booking without saving it.
// @Router /api/v1/bookings/{id}/price [get]
func (h *Handler) GetPrice(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	price, err := h.service.Price(c.Request.Context(), b.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"price":           price.Price,
		"price_in_points": price.PriceInPoints,
	})
}

// PayBooking
// @Summary Settle a PENDING booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "booking id"
// @Param request body PayBookingRequest true "payment options"
// @Router /api/v1/bookings/{id}/payments [post]
func (h *Handler) PayBooking(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}

	var req PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if errors := validator.Validate(req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", errors)
		return
	}
	if req.AtReception && !middleware.IsStaff(c) {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only staff may settle at reception")
		return
	}
	if !middleware.IsStaff(c) && req.Amount != nil {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only staff may override the amount")
		return
	}
	if !middleware.IsStaff(c) {
		req.AmountInPoints = nil
	}

	b, err := h.service.CreatePayment(c.Request.Context(), b.ID, req.options())
	if err != nil {
		response.FromError(c, err)
		return
	}
	ps, err := h.service.Payments(c.Request.Context(), b.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": BookingResponse{Booking: b, Payments: ps}})
}

// CancelBooking refunds and cancels a booking.
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	if !middleware.IsStaff(c) && b.Status != StatusPending && b.Status != StatusBooked {
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", "Booking can no longer be cancelled")
		return
	}
	b, err := h.service.Cancel(c.Request.Context(), b.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

// CheckIn
// @Router /api/v1/bookings/{id}/check-in [post]
func (h *Handler) CheckIn(c *gin.Context) {
	b, err := h.service.CheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

// Finish
// @Router /api/v1/bookings/{id}/finish [post]
func (h *Handler) Finish(c *gin.Context) {
	b, err := h.service.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

// load fetches the booking in the path and checks the caller may see it.
func (h *Handler) load(c *gin.Context) (*Booking, bool) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	if !middleware.IsStaff(c) && b.CustomerID != c.GetString("user_id") {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You don't own this booking")
		return nil, false
	}
	return b, true
}
