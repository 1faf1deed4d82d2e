package card

import (
	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/middleware"
)

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cards := rg.Group("/cards")
	{
		cards.POST("", h.IssueCard)
		cards.GET("/:id", h.GetCard)
		cards.POST("/:id/payments", h.PayCard)

		cards.POST("/:id/refund", middleware.StaffOnly(), h.RefundCard)
		cards.POST("/:id/extend", middleware.StaffOnly(), h.ExtendCard)
	}
}
