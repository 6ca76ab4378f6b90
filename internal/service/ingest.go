package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"linksignal/internal/canonical"
	"linksignal/internal/config"
	"linksignal/internal/domain"
)

// Ingestor turns raw (url, source) sightings into Link and Mention rows.
// Every per-item failure mode comes back as data inside an IngestResult
// so a batch of N candidates survives any one bad URL.
type Ingestor struct {
	links     LinkStore
	mentions  MentionStore
	blacklist BlacklistStore
	canon     Canonicalizer
	txManager TransactionManager
	publisher Publisher
	metadata  MetadataFetcher
	logger    *slog.Logger
	cfg       config.IngestConfig
	now       func() time.Time
}

func NewIngestor(
	links LinkStore,
	mentions MentionStore,
	blacklist BlacklistStore,
	canon Canonicalizer,
	txManager TransactionManager,
	publisher Publisher,
	metadata MetadataFetcher,
	logger *slog.Logger,
	cfg config.IngestConfig,
) *Ingestor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Ingestor{
		links:     links,
		mentions:  mentions,
		blacklist: blacklist,
		canon:     canon,
		txManager: txManager,
		publisher: publisher,
		metadata:  metadata,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Ingest processes a single raw mention against a fresh blacklist
// snapshot.
func (s *Ingestor) Ingest(ctx context.Context, raw domain.RawMention) domain.IngestResult {
	entries, err := s.blacklist.List(ctx)
	if err != nil {
		return domain.IngestResult{URL: raw.URL, Error: "load blacklist: " + err.Error()}
	}
	return s.ingestOne(ctx, raw, entries)
}

// IngestBatch processes items with bounded parallelism. The blacklist is
// snapshotted once for the whole batch. A canceled context stops the
// remaining items but keeps everything already persisted; the returned
// stats cover only the items that actually ran.
func (s *Ingestor) IngestBatch(ctx context.Context, items []domain.RawMention) domain.BatchStats {
	started := s.now()
	stats := domain.BatchStats{}

	entries, err := s.blacklist.List(ctx)
	if err != nil {
		s.logger.Error("load blacklist for batch", "error", err)
		for _, item := range items {
			stats.Add(domain.IngestResult{URL: item.URL, Error: "load blacklist: " + err.Error()})
		}
		stats.Duration = s.now().Sub(started)
		return stats
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := s.ingestOne(gctx, item, entries)
			mu.Lock()
			stats.Add(res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = s.now().Sub(started)
	s.logger.Info("batch ingested",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
		"needs_review", len(stats.NeedsReview),
		"duration", stats.Duration,
	)
	return stats
}

func (s *Ingestor) ingestOne(ctx context.Context, raw domain.RawMention, entries []domain.BlacklistEntry) domain.IngestResult {
	result := domain.IngestResult{URL: raw.URL}

	if raw.URL == "" || raw.SourceID == "" {
		result.Error = "missing url or source id"
		return result
	}

	cres, err := s.canon.Canonicalize(ctx, raw.URL, entries)
	switch {
	case errors.Is(err, domain.ErrBlacklisted):
		result.Error = domain.ErrorBlacklisted
		return result
	case errors.Is(err, domain.ErrInvalidURL):
		result.Error = err.Error()
		return result
	case err != nil:
		result.Error = "canonicalize: " + err.Error()
		return result
	}

	now := s.now()
	link := buildLink(raw, cres, now)

	var (
		stored    *domain.Link
		isNew     bool
		duplicate bool
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var txErr error
		stored, isNew, txErr = s.links.Upsert(txCtx, link)
		if txErr != nil {
			return txErr
		}
		created, txErr := s.mentions.Record(txCtx, stored.ID, raw.SourceID, now)
		if txErr != nil {
			return txErr
		}
		duplicate = !created
		return nil
	})
	if err != nil {
		result.Error = "persist: " + err.Error()
		return result
	}

	result.Success = true
	result.LinkID = stored.ID
	result.Status = cres.Status
	if duplicate {
		result.Duplicate = true
		result.Error = domain.ErrorDuplicateMention
	}

	s.publish(ctx, stored, raw.SourceID, now, isNew, duplicate)

	if isNew && cres.Status == domain.CanonicalSuccess {
		s.enrich(ctx, stored)
	}

	return result
}

func buildLink(raw domain.RawMention, cres domain.CanonicalResult, now time.Time) *domain.Link {
	link := &domain.Link{
		CanonicalURL:    cres.CanonicalURL,
		OriginalURL:     raw.URL,
		Domain:          cres.Domain,
		BaseDomain:      cres.BaseDomain,
		CanonicalStatus: cres.Status,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
	if raw.Title != "" {
		link.Title = &raw.Title
	}
	if raw.Description != "" {
		link.Description = &raw.Description
	}
	if cres.Status == domain.CanonicalFailed {
		link.NeedsManualReview = true
		if cres.Error != "" {
			link.CanonicalError = &cres.Error
		}
	}
	return link
}

// publish emits events on a best-effort basis; a broker outage never
// fails an already-persisted ingestion.
func (s *Ingestor) publish(ctx context.Context, link *domain.Link, sourceID string, seenAt time.Time, isNew, duplicate bool) {
	if s.publisher == nil {
		return
	}
	if isNew {
		if err := s.publisher.PublishLink(ctx, link, true); err != nil {
			s.logger.Warn("publish link event", "link_id", link.ID, "error", err)
		}
	}
	if !duplicate {
		if err := s.publisher.PublishMention(ctx, link, sourceID, seenAt); err != nil {
			s.logger.Warn("publish mention event", "link_id", link.ID, "error", err)
		}
	}
}

// enrich fills in page metadata for a freshly created link. Best effort:
// fetch failures are logged and dropped.
func (s *Ingestor) enrich(ctx context.Context, link *domain.Link) {
	if s.metadata == nil || !s.cfg.FetchMetadata {
		return
	}
	meta, err := s.metadata.Fetch(ctx, link.CanonicalURL)
	if err != nil {
		s.logger.Debug("fetch metadata", "link_id", link.ID, "error", err)
		return
	}
	if meta.Empty() {
		return
	}
	if err := s.links.UpdateMetadata(ctx, link.ID, meta); err != nil {
		s.logger.Warn("update metadata", "link_id", link.ID, "error", err)
	}
}

// ShouldIngest applies the self-domain exclusion policy: a content link
// discovered inside a source's own feed is skipped when it points back at
// the source's base domain or one of its internal domains, unless the
// source opts in to counting its own links.
func ShouldIngest(source *domain.Source, candidateURL string) bool {
	if source.IncludeOwnLinks {
		return true
	}
	base := canonical.BaseDomain(hostOf(candidateURL))
	if base == "" {
		return true
	}
	return !source.OwnsDomain(base)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
