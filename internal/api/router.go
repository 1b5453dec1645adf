// Package api wires the HTTP routes and middleware.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/goingest/internal/handlers"
	"github.com/jonesrussell/goingest/internal/logger"
)

const (
	corsMaxAgeHours = 12
)

// Handlers bundles the endpoint handlers the router mounts.
type Handlers struct {
	Sources  *handlers.SourceHandler
	Ingest   *handlers.IngestHandler
	Articles *handlers.ArticleHandler
}

// NewRouter builds the gin engine with CORS, request logging, recovery,
// health and metrics endpoints, and the versioned API routes.
func NewRouter(h Handlers, corsOrigins []string, gatherer prometheus.Gatherer, log logger.Logger) *gin.Engine {
	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "accept", "origin", "Cache-Control",
			"X-Requested-With", handlers.OrganizationHeader,
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	// Middleware
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1
	v1 := router.Group("/api/v1")

	sources := v1.Group("/sources")
	sources.POST("", h.Sources.Register)
	sources.GET("/due", h.Sources.ListDue)
	sources.GET("/:id", h.Sources.GetByID)
	sources.POST("/:id/crawls", h.Ingest.Ingest)
	sources.GET("/:id/articles/new", h.Articles.ListNewForSource)

	v1.GET("/articles/new", h.Articles.ListNew)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
