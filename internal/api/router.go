// Package api builds the HTTP surface: the health endpoint plus the
// websocket upgrade, both served from one listener.
package api

import (
	"net/http"
	"time"

	"github.com/bhandras/zenith/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// UnknownRouteBody is the plain-text body of every 404.
const UnknownRouteBody = "ZENITH: Unknown route"

// Upgrader serves websocket upgrade requests.
type Upgrader interface {
	HandleWebSocket(c *gin.Context)
}

// Options configures NewRouter.
type Options struct {
	Seeds     SeedReader
	Sockets   Upgrader
	IsUpgrade func(*http.Request) bool
	Port      int
	Started   time.Time
}

// NewRouter returns the gin engine serving health checks and websocket
// upgrades. Websocket clients may connect on any path.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Length"},
	}))

	router.Use(middleware.LoggingMiddleware())

	health := NewHealthHandler(opts.Seeds, opts.Port, opts.Started)

	upgradeOr := func(next gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			if opts.Sockets != nil && opts.IsUpgrade != nil && opts.IsUpgrade(c.Request) {
				opts.Sockets.HandleWebSocket(c)
				return
			}
			next(c)
		}
	}

	router.GET("/", upgradeOr(health.GetHealth))
	router.GET("/health", upgradeOr(health.GetHealth))

	router.NoRoute(upgradeOr(func(c *gin.Context) {
		c.String(http.StatusNotFound, UnknownRouteBody)
	}))

	return router
}
