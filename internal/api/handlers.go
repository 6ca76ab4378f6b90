package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linksignal/internal/domain"
	"linksignal/internal/extract"
	"linksignal/internal/service"
)

const defaultTrendingLimit = 50

// IngestService is the slice of the ingestor the API needs.
type IngestService interface {
	Ingest(ctx context.Context, raw domain.RawMention) domain.IngestResult
	IngestBatch(ctx context.Context, items []domain.RawMention) domain.BatchStats
}

// LinkReader serves the read and review endpoints.
type LinkReader interface {
	Trending(ctx context.Context, limit int) ([]service.ScoredLink, error)
	NeedsReview(ctx context.Context, limit int) ([]domain.Link, error)
	Recanonicalize(ctx context.Context, linkID string) (*domain.Link, error)
}

type Handler struct {
	ingestor IngestService
	links    LinkReader
	sources  service.SourceStore
	logger   *slog.Logger
}

func NewHandler(ingestor IngestService, links LinkReader, sources service.SourceStore, logger *slog.Logger) *Handler {
	return &Handler{
		ingestor: ingestor,
		links:    links,
		sources:  sources,
		logger:   logger,
	}
}

type mentionRequest struct {
	URL         string `json:"url" binding:"required"`
	SourceID    string `json:"source_id" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateMention handles manual entry of a single candidate URL. Every
// per-item outcome, including rejection, comes back as a 200 with the
// IngestResult payload; only malformed requests are client errors.
func (h *Handler) CreateMention(c *gin.Context) {
	var req mentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.sources.GetByID(c.Request.Context(), req.SourceID); err != nil {
		h.respondSourceError(c, err)
		return
	}

	result := h.ingestor.Ingest(c.Request.Context(), domain.RawMention{
		URL:         req.URL,
		SourceID:    req.SourceID,
		Title:       req.Title,
		Description: req.Description,
	})
	c.JSON(http.StatusOK, result)
}

type emailWebhookRequest struct {
	SourceID string `json:"source_id" binding:"required"`
	Subject  string `json:"subject"`
	HTML     string `json:"html" binding:"required"`
}

// EmailWebhook ingests every qualifying link found in a forwarded
// newsletter body on behalf of the newsletter source.
func (h *Handler) EmailWebhook(c *gin.Context) {
	var req emailWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source, err := h.sources.GetByID(c.Request.Context(), req.SourceID)
	if err != nil {
		h.respondSourceError(c, err)
		return
	}

	var items []domain.RawMention
	skippedOwn := 0
	for _, href := range extract.Links(req.HTML, "") {
		if !service.ShouldIngest(source, href) {
			skippedOwn++
			continue
		}
		items = append(items, domain.RawMention{URL: href, SourceID: source.ID})
	}

	h.logger.Debug("email webhook received",
		"source", source.ID,
		"subject", req.Subject,
		"candidates", len(items),
		"skipped_own", skippedOwn,
	)

	stats := h.ingestor.IngestBatch(c.Request.Context(), items)
	c.JSON(http.StatusOK, gin.H{
		"processed":    stats.Processed,
		"succeeded":    stats.Succeeded,
		"failed":       stats.Failed,
		"duplicates":   stats.Duplicates,
		"rejected":     stats.Rejected,
		"skipped_own":  skippedOwn,
		"needs_review": stats.NeedsReview,
		"results":      stats.Results,
	})
}

// Trending returns trending links ordered by ranking score.
func (h *Handler) Trending(c *gin.Context) {
	limit := queryLimit(c, defaultTrendingLimit)

	links, err := h.links.Trending(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("trending read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trending links"})
		return
	}
	if links == nil {
		links = []service.ScoredLink{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// NeedsReview lists links waiting on manual follow-up.
func (h *Handler) NeedsReview(c *gin.Context) {
	limit := queryLimit(c, 0)

	links, err := h.links.NeedsReview(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("needs-review read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list links"})
		return
	}
	if links == nil {
		links = []domain.Link{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// Recanonicalize retries canonicalization of one flagged link.
func (h *Handler) Recanonicalize(c *gin.Context) {
	link, err := h.links.Recanonicalize(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
	case errors.Is(err, domain.ErrCanonicalConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBlacklisted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "canonical url is blacklisted"})
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, link)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respondSourceError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}
	h.logger.Error("source lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load source"})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return fallback
	}
	return limit
}
