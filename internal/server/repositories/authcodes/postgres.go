package authcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

// PostgresRepository implements the code store over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.AuthCode) error {
	query := `
		INSERT INTO auth_codes (code, user_id, email, client_id, code_challenge, keys_jwk, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		c.Code, c.UserID, c.Email, c.ClientID, c.CodeChallenge, c.KeysJWK, c.ExpiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, code string) (*models.AuthCode, error) {
	query := `
		DELETE FROM auth_codes
		WHERE code = $1
		RETURNING user_id, email, client_id, code_challenge, keys_jwk, expires_at
	`
	c := &models.AuthCode{Code: code}
	err := r.db.QueryRowContext(ctx, query, code).
		Scan(&c.UserID, &c.Email, &c.ClientID, &c.CodeChallenge, &c.KeysJWK, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
