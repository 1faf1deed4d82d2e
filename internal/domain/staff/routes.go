package staff

import (
	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/middleware"
)

// RegisterPublicRoutes registers login, which needs no token.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/staff/login", h.Login)
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/staff", middleware.AdminOnly(), h.Register)
}
