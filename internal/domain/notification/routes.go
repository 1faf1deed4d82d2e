package notification

import "github.com/gin-gonic/gin"

// RegisterRoutes registers notification routes on an authenticated group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", h.GetNotifications)
		notifGroup.GET("/unread-count", h.GetUnreadCount)
		notifGroup.PATCH("/:id/read", h.MarkAsRead)
		notifGroup.POST("/read-all", h.MarkAllAsRead)
	}
}

// RegisterWebSocket registers the push endpoint. It authenticates on its own.
func (h *Handler) RegisterWebSocket(r gin.IRoutes) {
	r.GET("/ws/notifications", h.HandleWebSocket)
}
