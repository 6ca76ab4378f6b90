package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"linksignal/internal/config"
	"linksignal/internal/domain"
	"linksignal/internal/extract"
)

// MentionIngestor is the slice of the ingestor the poller needs.
type MentionIngestor interface {
	IngestBatch(ctx context.Context, items []domain.RawMention) domain.BatchStats
}

// PollService fetches each active feed source, discovers candidate URLs
// (the item links plus outbound links inside the item HTML), applies the
// self-domain exclusion policy, and hands the survivors to the ingestor.
// Each poll ends by recording the fetch outcome on the source.
type PollService struct {
	sources  SourceStore
	feed     FeedFetcher
	ingestor MentionIngestor
	logger   *slog.Logger
	cfg      config.PollerConfig
}

func NewPollService(
	sources SourceStore,
	feed FeedFetcher,
	ingestor MentionIngestor,
	logger *slog.Logger,
	cfg config.PollerConfig,
) *PollService {
	if cfg.SourceConcurrency <= 0 {
		cfg.SourceConcurrency = 4
	}
	return &PollService{
		sources:  sources,
		feed:     feed,
		ingestor: ingestor,
		logger:   logger,
		cfg:      cfg,
	}
}

// PollAll polls every active RSS source with bounded concurrency. A
// failing source never aborts its siblings.
func (s *PollService) PollAll(ctx context.Context) ([]*domain.PollStats, error) {
	sources, err := s.sources.ListActive(ctx, domain.SourceKindRSS)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	var mu sync.Mutex
	var all []*domain.PollStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SourceConcurrency)
	for i := range sources {
		src := sources[i]
		g.Go(func() error {
			stats, err := s.Poll(gctx, &src)
			if err != nil {
				s.logger.Warn("poll failed", "source", src.ID, "error", err)
			}
			if stats != nil {
				mu.Lock()
				all = append(all, stats)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("poll cycle finished", "sources", len(sources))
	return all, nil
}

// Poll polls one source end to end.
func (s *PollService) Poll(ctx context.Context, source *domain.Source) (*domain.PollStats, error) {
	started := time.Now()
	logger := s.logger.With("source", source.ID)
	stats := &domain.PollStats{SourceID: source.ID}

	items, err := s.feed.Fetch(ctx, source)
	if err != nil {
		if recErr := s.sources.RecordFetchResult(ctx, source.ID, err); recErr != nil {
			logger.Error("record fetch error", "error", recErr)
		}
		return stats, fmt.Errorf("fetch feed: %w", err)
	}
	stats.Items = len(items)

	mentions := s.collectCandidates(source, items, stats)
	stats.Candidates = len(mentions) + stats.SkippedOwn

	logger.Debug("feed polled",
		"items", stats.Items,
		"candidates", stats.Candidates,
		"skipped_own", stats.SkippedOwn,
	)

	if len(mentions) > 0 {
		stats.Ingest = s.ingestor.IngestBatch(ctx, mentions)
	}

	if err := s.sources.RecordFetchResult(ctx, source.ID, nil); err != nil {
		logger.Error("record fetch success", "error", err)
	}

	stats.Duration = time.Since(started)
	logger.Info("source polled",
		"items", stats.Items,
		"ingested", stats.Ingest.Succeeded,
		"rejected", stats.Ingest.Rejected,
		"failed", stats.Ingest.Failed,
		"duration", stats.Duration,
	)
	return stats, nil
}

// collectCandidates derives the unique candidate mentions of a poll: each
// item's own link carries the item's title and description, outbound
// links found in the item HTML carry none. Links pointing back at the
// source's own domains are dropped here, before any network cost.
func (s *PollService) collectCandidates(source *domain.Source, items []domain.FeedItem, stats *domain.PollStats) []domain.RawMention {
	seen := make(map[string]struct{})
	var mentions []domain.RawMention

	add := func(m domain.RawMention) {
		if m.URL == "" {
			return
		}
		if _, dup := seen[m.URL]; dup {
			return
		}
		seen[m.URL] = struct{}{}
		if !ShouldIngest(source, m.URL) {
			stats.SkippedOwn++
			return
		}
		mentions = append(mentions, m)
	}

	for i := range items {
		item := &items[i]
		add(domain.RawMention{
			URL:         item.URL,
			SourceID:    source.ID,
			Title:       item.Title,
			Description: item.Description,
		})
		for _, href := range extract.Links(item.Content, item.URL) {
			add(domain.RawMention{URL: href, SourceID: source.ID})
		}
	}
	return mentions
}
