package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"linksignal/internal/domain"
)

type MentionStore struct {
	db *sqlx.DB
}

func NewMentionStore(db *sqlx.DB) *MentionStore {
	return &MentionStore{db: db}
}

// Record upserts the single mention row per (link, source) pair. A
// re-sighting refreshes seen_at in place, with GREATEST keeping the
// timestamp monotonic under concurrent writers. The return value is
// false when the pair already existed, which callers report as a
// duplicate, not an error.
func (s *MentionStore) Record(ctx context.Context, linkID, sourceID string, seenAt time.Time) (bool, error) {
	query := `
		INSERT INTO mentions (id, link_id, source_id, seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (link_id, source_id) DO UPDATE SET
			seen_at = GREATEST(mentions.seen_at, EXCLUDED.seen_at)
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &inserted, query,
		uuid.NewString(), linkID, sourceID, seenAt)
	if err != nil {
		return false, fmt.Errorf("record mention: %w", err)
	}
	return inserted, nil
}

// FactsByLink loads a link's mentions joined with the source attributes
// the scoring engine consumes.
func (s *MentionStore) FactsByLink(ctx context.Context, linkID string) ([]domain.MentionFacts, error) {
	query := `
		SELECT
			m.source_id,
			m.seen_at,
			s.tier,
			s.trust_score,
			s.show_on_dashboard,
			s.base_domain,
			s.internal_domains,
			s.include_own_links
		FROM mentions m
		JOIN sources s ON s.id = m.source_id
		WHERE m.link_id = $1 AND s.active`

	var facts []domain.MentionFacts
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &facts, query, linkID)
	return facts, err
}
