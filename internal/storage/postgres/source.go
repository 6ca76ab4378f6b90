package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"linksignal/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &source,
		"SELECT * FROM sources WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// ListActive returns active sources, optionally filtered by kind.
func (s *SourceStore) ListActive(ctx context.Context, kind domain.SourceKind) ([]domain.Source, error) {
	query := "SELECT * FROM sources WHERE active"
	args := []interface{}{}
	if kind != "" {
		query += " AND kind = $1"
		args = append(args, kind)
	}
	query += " ORDER BY name"

	var sources []domain.Source
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources, query, args...)
	return sources, err
}

// RecordFetchResult writes the outcome of one fetch attempt onto the
// source. Success clears the error state; failure stores the message and
// bumps the consecutive-error counter. These counters are per source, so
// no cross-source coordination is needed.
func (s *SourceStore) RecordFetchResult(ctx context.Context, sourceID string, fetchErr error) error {
	var (
		query string
		args  []interface{}
	)
	if fetchErr == nil {
		query = `
			UPDATE sources SET
				last_error = NULL,
				consecutive_errors = 0,
				updated_at = NOW()
			WHERE id = $1`
		args = []interface{}{sourceID}
	} else {
		query = `
			UPDATE sources SET
				last_error = $2,
				consecutive_errors = consecutive_errors + 1,
				updated_at = NOW()
			WHERE id = $1`
		args = []interface{}{sourceID, fetchErr.Error()}
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("record fetch result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
