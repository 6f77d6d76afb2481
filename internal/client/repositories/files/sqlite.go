package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.OwnedFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode file %s: %w", f.ID, err)
	}

	query := `INSERT INTO files (id, data, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				data = excluded.data,
				updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query, f.ID, data, f.CreatedAt.UnixNano(), f.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert file %s: %w", f.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.OwnedFile, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM files WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", id, err)
	}
	return decode(data)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.OwnedFile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM files ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var result []*models.OwnedFile
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f, err := decode(data)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	err := dbx.RequireAffected(r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	return nil
}

func decode(data []byte) (*models.OwnedFile, error) {
	var f models.OwnedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &f, nil
}
