package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"linksignal/internal/domain"
)

type LinkStore struct {
	db *sqlx.DB
}

func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db}
}

type linkRow struct {
	domain.Link
	Inserted bool `db:"inserted"`
}

// Upsert races concurrent same-URL ingestion to a single row through the
// canonical_url uniqueness constraint. On conflict metadata is merged,
// never clobbered: a field only changes when the stored value is NULL or
// empty, and last_seen_at moves forward with GREATEST so a stale
// in-flight writer cannot turn time back. first_seen_at and the
// canonicalization status of the existing row are left alone.
func (s *LinkStore) Upsert(ctx context.Context, link *domain.Link) (*domain.Link, bool, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}

	query := `
		INSERT INTO links (
			id, canonical_url, original_url, domain, base_domain,
			title, description, image_url, author, published_at,
			canonical_status, canonical_error, needs_manual_review,
			first_seen_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (canonical_url) DO UPDATE SET
			title = COALESCE(NULLIF(links.title, ''), EXCLUDED.title),
			description = COALESCE(NULLIF(links.description, ''), EXCLUDED.description),
			image_url = COALESCE(NULLIF(links.image_url, ''), EXCLUDED.image_url),
			author = COALESCE(NULLIF(links.author, ''), EXCLUDED.author),
			published_at = COALESCE(links.published_at, EXCLUDED.published_at),
			last_seen_at = GREATEST(links.last_seen_at, EXCLUDED.last_seen_at),
			updated_at = NOW()
		RETURNING id, canonical_url, original_url, domain, base_domain,
			title, description, image_url, author, published_at,
			canonical_status, canonical_error, needs_manual_review,
			first_seen_at, last_seen_at, created_at, updated_at,
			(xmax = 0) AS inserted`

	var row linkRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		link.ID,
		link.CanonicalURL,
		link.OriginalURL,
		link.Domain,
		link.BaseDomain,
		link.Title,
		link.Description,
		link.ImageURL,
		link.Author,
		link.PublishedAt,
		link.CanonicalStatus,
		link.CanonicalError,
		link.NeedsManualReview,
		link.FirstSeenAt,
		link.LastSeenAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert link: %w", err)
	}

	return &row.Link, row.Inserted, nil
}

func (s *LinkStore) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	var link domain.Link
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &link,
		"SELECT * FROM links WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) GetByCanonicalURL(ctx context.Context, canonicalURL string) (*domain.Link, error) {
	var link domain.Link
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &link,
		"SELECT * FROM links WHERE canonical_url = $1", canonicalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListRecent returns links last seen at or after since, newest first.
// limit <= 0 means no limit.
func (s *LinkStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Link, error) {
	query := "SELECT * FROM links WHERE last_seen_at >= $1 ORDER BY last_seen_at DESC"
	args := []interface{}{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var links []domain.Link
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &links, query, args...)
	return links, err
}

func (s *LinkStore) ListNeedsReview(ctx context.Context, limit int) ([]domain.Link, error) {
	query := "SELECT * FROM links WHERE needs_manual_review ORDER BY first_seen_at ASC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var links []domain.Link
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &links, query, args...)
	return links, err
}

// UpdateCanonical rewrites the link's canonical identity after a
// successful re-canonicalization and clears the manual-review flag.
func (s *LinkStore) UpdateCanonical(ctx context.Context, id string, result domain.CanonicalResult) error {
	query := `
		UPDATE links SET
			canonical_url = $2,
			domain = $3,
			base_domain = $4,
			canonical_status = $5,
			canonical_error = NULL,
			needs_manual_review = FALSE,
			updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		id, result.CanonicalURL, result.Domain, result.BaseDomain, result.Status)
	if err != nil {
		return fmt.Errorf("update canonical: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateMetadata fills metadata gaps on an existing link. Present values
// win over incoming ones, so enrichment never regresses a field.
func (s *LinkStore) UpdateMetadata(ctx context.Context, id string, meta domain.LinkMetadata) error {
	query := `
		UPDATE links SET
			title = COALESCE(NULLIF(title, ''), $2),
			description = COALESCE(NULLIF(description, ''), $3),
			image_url = COALESCE(NULLIF(image_url, ''), $4),
			author = COALESCE(NULLIF(author, ''), $5),
			published_at = COALESCE(published_at, $6),
			updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		id, meta.Title, meta.Description, meta.ImageURL, meta.Author, meta.PublishedAt)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
