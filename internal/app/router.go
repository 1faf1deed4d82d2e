package app

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/domain/booking"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/notification"
	"github.com/uicestone/minimars-server-sub000/internal/domain/settlement"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
	"github.com/uicestone/minimars-server-sub000/internal/middleware"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/response"
)

const maxVenueBody = 1 << 20

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	if !a.Config.Dev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorLogger(a.Log))
	r.Use(middleware.CORS(a.Config.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staffHandler := staff.NewHandler(a.Staff)
	notificationHandler := notification.NewHandler(a.Notifications, a.Hub, a.JWT, a.Config.CORSOrigins, a.Log)
	notificationHandler.RegisterWebSocket(r)

	v1 := r.Group("/api/v1")
	{
		// public
		settlement.NewHandler(a.Settlement).RegisterWebhookRoutes(v1)
		staffHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(a.JWT))
		{
			booking.NewHandler(a.Bookings).RegisterRoutes(protected)
			card.NewHandler(a.Cards).RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
			staffHandler.RegisterRoutes(protected)
		}
	}

	internal := r.Group("/internal")
	internal.Use(middleware.InternalTokenAuth(a.Config.InternalToken, a.Log))
	{
		internal.PUT("/venue", a.reloadVenue)
		internal.GET("/venue", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{"venue": a.Venue.Current()})
		})
	}

	return r
}

// reloadVenue swaps the pricing snapshot with the posted YAML document.
// Operations already running keep the snapshot they started with.
func (a *App) reloadVenue(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxVenueBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable body")
		return
	}
	v, err := config.ParseVenue(raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_VENUE", err.Error())
		return
	}
	a.Venue.Replace(v)
	a.Log.Info().Msg("venue config reloaded")
	response.Success(c, http.StatusOK, gin.H{"venue": v})
}
