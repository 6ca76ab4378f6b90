package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"linksignal/internal/config"
	"linksignal/internal/domain"
	"linksignal/internal/scoring"
)

// ScoredLink pairs a link with its computed signal strength.
type ScoredLink struct {
	Link  domain.Link       `json:"link"`
	Score scoring.LinkScore `json:"score"`
}

// LinkService serves the read side of the core: trending classification,
// the manual-review report, and re-canonicalization of failed links.
// Scoring happens on read, never on write.
type LinkService struct {
	links     LinkStore
	mentions  MentionStore
	blacklist BlacklistStore
	canon     Canonicalizer
	engine    *scoring.Engine
	logger    *slog.Logger
	cfg       config.ScoringConfig
	now       func() time.Time
}

func NewLinkService(
	links LinkStore,
	mentions MentionStore,
	blacklist BlacklistStore,
	canon Canonicalizer,
	engine *scoring.Engine,
	logger *slog.Logger,
	cfg config.ScoringConfig,
) *LinkService {
	if cfg.TrendingWindow == 0 {
		cfg.TrendingWindow = 7 * 24 * time.Hour
	}
	return &LinkService{
		links:     links,
		mentions:  mentions,
		blacklist: blacklist,
		canon:     canon,
		engine:    engine,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Trending scores links seen inside the trending window and returns the
// ones classified as trending, ordered by ranking score.
func (s *LinkService) Trending(ctx context.Context, limit int) ([]ScoredLink, error) {
	now := s.now()
	candidates, err := s.links.ListRecent(ctx, now.Add(-s.cfg.TrendingWindow), 0)
	if err != nil {
		return nil, fmt.Errorf("list recent links: %w", err)
	}

	var trending []ScoredLink
	for i := range candidates {
		link := candidates[i]
		facts, err := s.mentions.FactsByLink(ctx, link.ID)
		if err != nil {
			return nil, fmt.Errorf("load mentions for link %s: %w", link.ID, err)
		}
		score := s.engine.Score(scoring.LinkFacts{
			BaseDomain:  link.BaseDomain,
			FirstSeenAt: link.FirstSeenAt,
		}, facts, now)
		if score.IsTrending {
			trending = append(trending, ScoredLink{Link: link, Score: score})
		}
	}

	sort.Slice(trending, func(i, j int) bool {
		return trending[i].Score.RankingScore > trending[j].Score.RankingScore
	})
	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}

// ScoreLink scores a single link by id.
func (s *LinkService) ScoreLink(ctx context.Context, linkID string) (*ScoredLink, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	facts, err := s.mentions.FactsByLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("load mentions: %w", err)
	}
	score := s.engine.Score(scoring.LinkFacts{
		BaseDomain:  link.BaseDomain,
		FirstSeenAt: link.FirstSeenAt,
	}, facts, s.now())
	return &ScoredLink{Link: *link, Score: score}, nil
}

// NeedsReview lists links whose canonicalization failed and still await
// a successful retry.
func (s *LinkService) NeedsReview(ctx context.Context, limit int) ([]domain.Link, error) {
	return s.links.ListNeedsReview(ctx, limit)
}

// Recanonicalize retries canonicalization of a flagged link from its
// original URL. On success the canonical identity is updated and the
// review flag clears. When the fresh canonical already belongs to a
// different link the row stays flagged and ErrCanonicalConflict is
// returned; merging is an admin concern.
func (s *LinkService) Recanonicalize(ctx context.Context, linkID string) (*domain.Link, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}

	entries, err := s.blacklist.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}

	result, err := s.canon.Canonicalize(ctx, link.OriginalURL, entries)
	if err != nil {
		return nil, err
	}
	if result.Status == domain.CanonicalFailed {
		return nil, fmt.Errorf("resolution still failing: %s", result.Error)
	}

	if result.CanonicalURL != link.CanonicalURL {
		existing, err := s.links.GetByCanonicalURL(ctx, result.CanonicalURL)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("check canonical collision: %w", err)
		}
		if existing != nil && existing.ID != link.ID {
			return nil, fmt.Errorf("%w: %s", domain.ErrCanonicalConflict, existing.ID)
		}
	}

	if err := s.links.UpdateCanonical(ctx, link.ID, result); err != nil {
		return nil, fmt.Errorf("update canonical: %w", err)
	}

	s.logger.Info("link recanonicalized",
		"link_id", link.ID,
		"canonical_url", result.CanonicalURL,
	)
	return s.links.GetByID(ctx, link.ID)
}

// RetryFailed re-attempts canonicalization for a batch of flagged links.
// Individual failures are logged and skipped; the returned count is the
// number of links that recovered.
func (s *LinkService) RetryFailed(ctx context.Context, limit int) (int, error) {
	flagged, err := s.links.ListNeedsReview(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list flagged links: %w", err)
	}

	recovered := 0
	for i := range flagged {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		if _, err := s.Recanonicalize(ctx, flagged[i].ID); err != nil {
			s.logger.Debug("recanonicalize retry failed",
				"link_id", flagged[i].ID,
				"error", err,
			)
			continue
		}
		recovered++
	}

	s.logger.Info("recanonicalization sweep done",
		"flagged", len(flagged),
		"recovered", recovered,
	)
	return recovered, nil
}
