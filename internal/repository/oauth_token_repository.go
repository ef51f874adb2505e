package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// OAuthTokenRepository stores issued access tokens sealed at rest.
type OAuthTokenRepository struct {
	db     *sqlx.DB
	sealer tokenSealer
}

func NewOAuthTokenRepository(db *sqlx.DB, sealer tokenSealer) *OAuthTokenRepository {
	return &OAuthTokenRepository{db: db, sealer: sealer}
}

// Create seals token.Token and inserts the row.
func (r *OAuthTokenRepository) Create(ctx context.Context, token *models.OAuthToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	sealed, err := r.sealer.Seal(token.Token)
	if err != nil {
		return fmt.Errorf("seal oauth token: %w", err)
	}
	const query = `INSERT INTO user_oauth_tokens (id, user_id, provider, token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.Provider, sealed, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("create oauth token: %w", err)
	}
	return nil
}

// FindLatest returns the most recently issued token for the user and provider, or sql.ErrNoRows.
func (r *OAuthTokenRepository) FindLatest(ctx context.Context, userID string, provider models.OAuthProvider) (*models.OAuthToken, error) {
	const query = `SELECT id, user_id, provider, token, expires_at, created_at FROM user_oauth_tokens
WHERE user_id = $1 AND provider = $2 ORDER BY created_at DESC, id DESC LIMIT 1`
	var token models.OAuthToken
	if err := r.db.GetContext(ctx, &token, query, userID, provider); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest oauth token: %w", err)
	}
	plain, err := r.sealer.Open(token.Token)
	if err != nil {
		return nil, fmt.Errorf("open oauth token: %w", err)
	}
	token.Token = plain
	return &token, nil
}

// DeleteExpired removes tokens whose expiry has passed and returns how many were deleted.
func (r *OAuthTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_oauth_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("sweep oauth tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep oauth tokens: %w", err)
	}
	return n, nil
}
