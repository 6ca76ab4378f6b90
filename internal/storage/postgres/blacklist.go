package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"linksignal/internal/domain"
)

type BlacklistStore struct {
	db *sqlx.DB
}

func NewBlacklistStore(db *sqlx.DB) *BlacklistStore {
	return &BlacklistStore{db: db}
}

// List returns the full deny-list. Callers snapshot it once per batch;
// the core never writes entries.
func (s *BlacklistStore) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	var entries []domain.BlacklistEntry
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries,
		"SELECT * FROM blacklist_entries ORDER BY created_at")
	return entries, err
}
