package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/ArtificalManny/sharesync/internal/auth"
	"github.com/ArtificalManny/sharesync/internal/handlers"
	"github.com/ArtificalManny/sharesync/internal/middleware"
)

// Options carries the handlers and services the router wires together.
type Options struct {
	JWT           *iauth.JWTService
	Realtime      *handlers.RealtimeHandler
	Notifications *handlers.NotificationHandler
	Points        *handlers.PointsHandler
	ProjectEvents *handlers.ProjectEventHandler
	Auth          *handlers.AuthHandler

	// DevTokens enables the unauthenticated token minting endpoint. Keep it
	// off outside local development.
	DevTokens bool

	// EnableMetrics exposes the Prometheus scrape endpoint.
	EnableMetrics bool

	// EnableHealth exposes the liveness endpoint.
	EnableHealth bool
}

// NewRouter builds the HTTP routing tree.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())

	if opts.EnableHealth {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
	}

	if opts.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// The WebSocket endpoint authenticates inside the handler because the
	// token arrives in the query string rather than a header.
	router.GET("/ws", opts.Realtime.Stream)

	if opts.DevTokens && opts.Auth != nil {
		router.POST("/api/auth/token", opts.Auth.Token)
	}

	authorized := router.Group("/api")
	authorized.Use(middleware.Auth(opts.JWT))
	{
		authorized.GET("/notifications", opts.Notifications.List)
		authorized.GET("/notifications/unread_count", opts.Notifications.UnreadCount)
		authorized.POST("/notifications/:id/read", opts.Notifications.MarkRead)
		authorized.POST("/notifications/read_all", opts.Notifications.MarkAllRead)

		authorized.GET("/points/leaderboard", opts.Points.Leaderboard)
		authorized.GET("/points/me", opts.Points.Me)

		authorized.POST("/projects/:id/events", opts.ProjectEvents.Notify)
	}

	router.NoRoute(middleware.NotFoundHandler)

	return router
}
