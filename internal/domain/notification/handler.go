package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
)

type Handler struct {
	service    *Service
	hub        *Hub
	jwtService *jwt.Service
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHandler builds the notification handler. allowedOrigins limits
// websocket origins; an empty list allows any origin.
func NewHandler(service *Service, hub *Hub, jwtService *jwt.Service, allowedOrigins []string, log zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		service:    service,
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log: log.With().Str("component", "NotificationHandler").Logger(),
	}
}

type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"total"`
}

// GetNotifications
// @Summary List the caller's notifications
// @Tags Notifications
// @Security BearerAuth
// @Param limit query int false "max items (default 20, max 100)"
// @Param offset query int false "offset"
// @Success 200 {object} ListResponse
// @Router /api/v1/notifications [get]
func (h *Handler) GetNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, unread, total, err := h.service.List(c.Request.Context(), c.GetString("user_id"), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ListResponse{Notifications: list, UnreadCount: unread, Total: total})
}

// GetUnreadCount
// @Router /api/v1/notifications/unread-count [get]
func (h *Handler) GetUnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": n})
}

// MarkAsRead
// @Router /api/v1/notifications/{id}/read [patch]
func (h *Handler) MarkAsRead(c *gin.Context) {
	if err := h.service.MarkAsRead(c.Request.Context(), c.Param("id"), c.GetString("user_id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead
// @Router /api/v1/notifications/read-all [post]
func (h *Handler) MarkAllAsRead(c *gin.Context) {
	n, err := h.service.MarkAllAsRead(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": n})
}

// HandleWebSocket upgrades to a push connection.
//
// Endpoint: GET /ws/notifications?token=JWT_TOKEN
//
// Browsers cannot set headers on websocket requests, so the token comes in
// the query. Staff tokens listen on their store, customers on themselves.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.CustomError(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	channels := []string{CustomerChannel(claims.UserID)}
	if jwt.Staff(claims.Role) {
		if claims.StoreID == "" {
			response.CustomError(c, http.StatusForbidden, "STORE_REQUIRED", "Staff token has no store")
			return
		}
		channels = []string{StoreChannel(claims.StoreID)}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.log.Info().Str("user_id", claims.UserID).Strs("channels", channels).Msg("websocket connected")
	h.hub.ServeWS(conn, channels)
	h.log.Info().Str("user_id", claims.UserID).Msg("websocket disconnected")
}
