package booking

import (
	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/middleware"
)

// RegisterRoutes registers booking routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/price", h.GetPrice)
		bookings.POST("/:id/payments", h.PayBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)

		// Reception
		bookings.POST("/:id/check-in", middleware.StaffOnly(), h.CheckIn)
		bookings.POST("/:id/finish", middleware.StaffOnly(), h.Finish)
	}
}
