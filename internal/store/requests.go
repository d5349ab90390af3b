package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/datallboy/jarview/internal/domain"
)

const requestColumns = `id, url, mode, status, error_code, error, bytes, redirect, created_at, finished_at`

// Record upserts the outcome of one request.
func (s *PersistentStore) Record(ctx context.Context, rec *domain.RequestRecord) error {
	var dbo requestDBO
	dbo.FromDomain(rec)

	query := s.rebind(`
		INSERT INTO requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			status = excluded.status,
			error_code = excluded.error_code,
			error = excluded.error,
			bytes = excluded.bytes,
			redirect = excluded.redirect,
			finished_at = excluded.finished_at`)

	_, err := s.db.ExecContext(ctx, query,
		dbo.ID, dbo.URL, dbo.Mode, dbo.Status, dbo.ErrorCode, dbo.Error,
		dbo.Bytes, dbo.Redirect, dbo.CreatedAt, dbo.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record request %s: %w", rec.ID, err)
	}
	return nil
}

// Get fetches a single record. Returns nil, nil when it does not exist.
func (s *PersistentStore) Get(ctx context.Context, id string) (*domain.RequestRecord, error) {
	query := s.rebind(`SELECT ` + requestColumns + ` FROM requests WHERE id = ? LIMIT 1`)

	dbo, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil to indicate "Not found"
		}
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}

	return dbo.ToDomain(), nil
}

// Recent returns up to limit records, newest first.
func (s *PersistentStore) Recent(ctx context.Context, limit int) ([]*domain.RequestRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.rebind(`SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var records []*domain.RequestRecord
	for rows.Next() {
		dbo, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		records = append(records, dbo.ToDomain())
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*requestDBO, error) {
	var dbo requestDBO
	err := row.Scan(
		&dbo.ID, &dbo.URL, &dbo.Mode, &dbo.Status, &dbo.ErrorCode, &dbo.Error,
		&dbo.Bytes, &dbo.Redirect, &dbo.CreatedAt, &dbo.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dbo, nil
}
