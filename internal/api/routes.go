package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"linksignal/internal/api/middleware"
)

// SetupRoutes wires all endpoints. The write endpoints sit behind the
// per-IP rate limiter; reads do not.
func SetupRoutes(router *gin.Engine, h *Handler, maxRequests int, window time.Duration) {
	router.GET("/health", h.Health)

	v1 := router.Group("/v1")

	ingest := v1.Group("")
	ingest.Use(middleware.RateLimiter(maxRequests, window))
	ingest.POST("/mentions", h.CreateMention)
	ingest.POST("/webhooks/email", h.EmailWebhook)
	ingest.POST("/links/:id/recanonicalize", h.Recanonicalize)

	v1.GET("/links/trending", h.Trending)
	v1.GET("/links/needs-review", h.NeedsReview)
}
