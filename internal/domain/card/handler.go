package card

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

// IssueCard
// @Summary Issue a PENDING card from a card type
// @Tags Cards
// @Accept json
// @Produce json
// @Param request body IssueCardRequest true "card"
// @Router /api/v1/cards [post]
func (h *Handler) IssueCard(c *gin.Context) {
	var req IssueCardRequest
	if !bind(c, &req) {
		return
	}

	customerID := c.GetString("user_id")
	if middleware.IsStaff(c) {
		customerID = req.CustomerID
	}

	card, err := h.service.Issue(c.Request.Context(), req.CardType, customerID, IssueOptions{
		Quantity:      req.Quantity,
		BalanceGroups: req.BalanceGroups,
		IsGift:        req.IsGift,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"card": card})
}

// GetCard
// @Router /api/v1/cards/{id} [get]
func (h *Handler) GetCard(c *gin.Context) {
	card, ok := h.load(c)
	if !ok {
		return
	}
	ps, err := h.service.Payments(c.Request.Context(), card.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"card": card, "payments": ps})
}

// PayCard
// @Summary Pay for a PENDING card
// @Router /api/v1/cards/{id}/payments [post]
func (h *Handler) PayCard(c *gin.Context) {
	card, ok := h.load(c)
	if !ok {
		return
	}
	var req PayCardRequest
	if !bind(c, &req) {
		return
	}
	if !middleware.IsStaff(c) && (req.StoreID != "" || req.Amount != nil) {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only staff may sell at reception or override the amount")
		return
	}

	card, err := h.service.CreatePayment(c.Request.Context(), card.ID, PayOptions{
		Gateway:            req.Gateway,
		AtReceptionStoreID: req.StoreID,
		Amount:             req.Amount,
		PayerRef:           req.PayerRef,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"card": card})
}

// RefundCard
// @Router /api/v1/cards/{id}/refund [post]
func (h *Handler) RefundCard(c *gin.Context) {
	var req RefundCardRequest
	if !bind(c, &req) {
		return
	}
	card, err := h.service.Refund(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"card": card})
}

// ExtendCard
// @Router /api/v1/cards/{id}/extend [post]
func (h *Handler) ExtendCard(c *gin.Context) {
	var req ExtendCardRequest
	if !bind(c, &req) {
		return
	}
	card, err := h.service.Extend(c.Request.Context(), c.Param("id"), req.ExpiresAt, req.AddTimes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"card": card})
}

func (h *Handler) load(c *gin.Context) (*Card, bool) {
	card, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	if !middleware.IsStaff(c) && card.CustomerID != c.GetString("user_id") {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You don't own this card")
		return nil, false
	}
	return card, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	if errors := validator.Validate(req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", errors)
		return false
	}
	return true
}
