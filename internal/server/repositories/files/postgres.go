package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, owner_token, auth_key, has_password, nonce, metadata, size, storage_key,
	COALESCE(user_id, ''), download_limit, download_count, created_at, expires_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	err := s.Scan(&f.ID, &f.OwnerToken, &f.AuthKey, &f.HasPassword, &f.Nonce, &f.Metadata, &f.Size,
		&f.StorageKey, &f.UserID, &f.DownloadLimit, &f.DownloadCount, &f.CreatedAt, &f.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (id, owner_token, auth_key, has_password, nonce, metadata, size, storage_key,
			user_id, download_limit, download_count, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.OwnerToken, f.AuthKey, f.HasPassword, f.Nonce, f.Metadata, f.Size, f.StorageKey,
		nullable(f.UserID), f.DownloadLimit, f.DownloadCount, f.CreatedAt, f.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) RotateNonce(ctx context.Context, id, old, next string) error {
	query := `UPDATE files SET nonce = $3 WHERE id = $1 AND nonce = $2`
	err := dbx.RequireAffected(r.db.ExecContext(ctx, query, id, old, next))
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrVersionConflict
	}
	return err
}

func (r *PostgresRepository) SetAuthKey(ctx context.Context, id string, authKey []byte) error {
	query := `UPDATE files SET auth_key = $2, has_password = TRUE WHERE id = $1`
	return dbx.RequireAffected(r.db.ExecContext(ctx, query, id, authKey))
}

func (r *PostgresRepository) SetDownloadLimit(ctx context.Context, id string, limit int) error {
	query := `UPDATE files SET download_limit = $2 WHERE id = $1`
	return dbx.RequireAffected(r.db.ExecContext(ctx, query, id, limit))
}

func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE files SET download_count = download_count + 1
		WHERE id = $1 AND download_count < download_limit
		RETURNING download_count
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	return dbx.RequireAffected(r.db.ExecContext(ctx, query, id))
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE expires_at <= $1 OR download_count >= download_limit`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
