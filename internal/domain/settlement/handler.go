package settlement

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/infra/gateway"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
)

const maxNotifyBody = 64 << 10

type Handler struct {
	router *Router
}

func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// Notify
// @Summary Gateway payment/refund callback
// @Description Verifies the HMAC signature and settles the payment (idempotent)
// @Tags Payments
// @Accept json
// @Produce json
// @Param gateway path string true "gateway name"
// @Router /api/v1/payments/{gateway}/notify [post]
func (h *Handler) Notify(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotifyBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_NOTIFY", "Unreadable body")
		return
	}

	g := payment.Gateway(c.Param("gateway"))
	if err := h.router.HandleNotify(c.Request.Context(), g, raw, c.GetHeader(gateway.SignatureHeader)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": gateway.ResultSuccess})
}

// RegisterWebhookRoutes registers unauthenticated gateway callbacks.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/:gateway/notify", h.Notify)
}
