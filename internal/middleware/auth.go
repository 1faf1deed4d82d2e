package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uicestone/minimars-server-sub000/internal/logging"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
)

// JWTAuth validates a bearer token and stores user_id, role and store_id in
// the gin context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("store_id", claims.StoreID)
		if jwt.Staff(claims.Role) {
			c.Request = c.Request.WithContext(logging.WithStaffID(c.Request.Context(), claims.UserID))
		}

		c.Next()
	}
}

// IsStaff reports whether the authenticated caller may act at reception.
func IsStaff(c *gin.Context) bool {
	return jwt.Staff(c.GetString("role"))
}
