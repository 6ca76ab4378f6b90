package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"linksignal/internal/config"
)

// NewServer builds the ingestion HTTP server around a gin engine.
func NewServer(cfg config.HTTPConfig, h *Handler, logger *slog.Logger, debug bool) *http.Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	SetupRoutes(router, h, cfg.RateLimitRequests, cfg.RateLimitWindow)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
