package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"linksignal/internal/domain"
)

type LinkStore interface {
	// Upsert creates the link or merges it into the existing row keyed by
	// canonical URL. It returns the stored row and whether it was new.
	Upsert(ctx context.Context, link *domain.Link) (*domain.Link, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Link, error)
	GetByCanonicalURL(ctx context.Context, canonicalURL string) (*domain.Link, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Link, error)
	ListNeedsReview(ctx context.Context, limit int) ([]domain.Link, error)
	UpdateCanonical(ctx context.Context, id string, result domain.CanonicalResult) error
	UpdateMetadata(ctx context.Context, id string, meta domain.LinkMetadata) error
}

type MentionStore interface {
	// Record creates the (link, source) mention or refreshes its seen_at
	// in place. It returns false when the pair already existed.
	Record(ctx context.Context, linkID, sourceID string, seenAt time.Time) (bool, error)
	FactsByLink(ctx context.Context, linkID string) ([]domain.MentionFacts, error)
}

type SourceStore interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	ListActive(ctx context.Context, kind domain.SourceKind) ([]domain.Source, error)
	// RecordFetchResult updates the source's error tracking after a fetch
	// attempt: nil resets the counter, non-nil increments it.
	RecordFetchResult(ctx context.Context, sourceID string, fetchErr error) error
}

type BlacklistStore interface {
	List(ctx context.Context) ([]domain.BlacklistEntry, error)
}

type Canonicalizer interface {
	Canonicalize(ctx context.Context, raw string, entries []domain.BlacklistEntry) (domain.CanonicalResult, error)
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, pageURL string) (domain.LinkMetadata, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context, source *domain.Source) ([]domain.FeedItem, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishLink(ctx context.Context, link *domain.Link, isNew bool) error
	PublishMention(ctx context.Context, link *domain.Link, sourceID string, seenAt time.Time) error
	Close() error
}
