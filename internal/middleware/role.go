package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role.(string) == r {
				c.Next()
				return
			}
		}
		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

// StaffOnly admits reception staff and admins.
func StaffOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleStaff, jwt.RoleAdmin)
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleAdmin)
}
