// Package metadata fetches best-effort page metadata for newly created
// links: OpenGraph and plain meta tags only, no readability extraction.
package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"linksignal/internal/domain"
)

// maxBodyBytes caps how much of a page is read; metadata lives in <head>.
const maxBodyBytes = 1 << 20

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "LinkSignal/1.0 (metadata fetcher)"
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch downloads pageURL and extracts title, description, image, author,
// and published time from its meta tags. Missing fields stay nil.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (domain.LinkMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.LinkMetadata{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.LinkMetadata{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.LinkMetadata{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.LinkMetadata{}, fmt.Errorf("parse page: %w", err)
	}

	return parse(doc), nil
}

func parse(doc *goquery.Document) domain.LinkMetadata {
	var meta domain.LinkMetadata

	if title := firstMeta(doc, "og:title", "twitter:title"); title != "" {
		meta.Title = &title
	} else if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		meta.Title = &t
	}

	if desc := firstMeta(doc, "og:description", "twitter:description", "description"); desc != "" {
		meta.Description = &desc
	}

	if img := firstMeta(doc, "og:image", "twitter:image"); img != "" {
		meta.ImageURL = &img
	}

	if author := firstMeta(doc, "article:author", "author"); author != "" {
		meta.Author = &author
	}

	if published := firstMeta(doc, "article:published_time", "og:article:published_time"); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			meta.PublishedAt = &t
		}
	}

	return meta
}

// firstMeta returns the first non-empty content attribute among meta tags
// whose property or name matches one of the keys, in key order.
func firstMeta(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)
		content := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
		if content != "" {
			return content
		}
	}
	return ""
}
