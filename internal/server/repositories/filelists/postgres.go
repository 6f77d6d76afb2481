package filelists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID, kid string) (*models.FileList, error) {
	query := `SELECT data, updated_at FROM file_lists WHERE user_id = $1 AND kid = $2`

	l := &models.FileList{UserID: userID, Kid: kid}
	if err := r.db.QueryRowContext(ctx, query, userID, kid).Scan(&l.Data, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Put(ctx context.Context, l *models.FileList) error {
	query := `
		INSERT INTO file_lists (user_id, kid, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, kid)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, l.UserID, l.Kid, l.Data, l.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
