// Package rss adapts RSS and Atom feeds into the ingestion pipeline.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"linksignal/internal/domain"
)

// Config holds feed fetcher configuration.
type Config struct {
	Timeout        time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Fetcher downloads and parses a source's feed with retry and exponential
// backoff. It implements service.FeedFetcher.
type Fetcher struct {
	httpClient     *http.Client
	parser         *gofeed.Parser
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "LinkSignal/1.0 (feed poller)"
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Fetcher{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		parser:         gofeed.NewParser(),
		userAgent:      cfg.UserAgent,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}
}

// Fetch downloads the source's feed and transforms its entries.
func (f *Fetcher) Fetch(ctx context.Context, source *domain.Source) ([]domain.FeedItem, error) {
	if source.FeedURL == nil || *source.FeedURL == "" {
		return nil, fmt.Errorf("source %s has no feed url", source.ID)
	}

	feed, err := f.fetchFeed(ctx, *source.FeedURL, source.ID)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("feed fetched",
		"source", source.ID,
		"title", feed.Title,
		"items", len(feed.Items),
	)
	return f.transform(feed), nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL, sourceID string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed
	var err error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		feed, err = f.doRequest(ctx, feedURL)
		if err == nil {
			return feed, nil
		}

		if attempt == f.maxAttempts {
			break
		}

		backoff := f.calculateBackoff(attempt)
		f.logger.Warn("feed fetch failed, retrying",
			"source", sourceID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", f.maxAttempts, err)
}

func (f *Fetcher) doRequest(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (f *Fetcher) calculateBackoff(attempt int) time.Duration {
	backoff := f.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > f.maxBackoff {
		backoff = f.maxBackoff
	}
	return backoff
}

// transform maps parsed feed entries onto domain items. Content falls
// back to the item description when the feed carries no body, so
// link extraction always has something to chew on.
func (f *Fetcher) transform(feed *gofeed.Feed) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}

		content := entry.Content
		if content == "" {
			content = entry.Description
		}

		item := domain.FeedItem{
			URL:         entry.Link,
			Title:       entry.Title,
			Description: entry.Description,
			Content:     content,
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = entry.UpdatedParsed
		}
		items = append(items, item)
	}
	return items
}
