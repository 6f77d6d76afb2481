// Package tombstones records ids of files the user removed locally, so a
// later merge does not bring them back from the remote list.
package tombstones

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/dbx"
)

type Repository interface {
	Add(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) (map[string]time.Time, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tombstones (id, removed_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET removed_at = excluded.removed_at
	`, id, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add tombstone %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, removed_at FROM tombstones`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at int64
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone row: %w", err)
		}
		result[id] = time.Unix(0, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tombstone rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tombstone %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tombstones`); err != nil {
		return fmt.Errorf("failed to clear tombstones: %w", err)
	}
	return nil
}
