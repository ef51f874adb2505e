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

// OAuthStateRepository stores pending authorization states.
type OAuthStateRepository struct {
	db *sqlx.DB
}

func NewOAuthStateRepository(db *sqlx.DB) *OAuthStateRepository {
	return &OAuthStateRepository{db: db}
}

// Create inserts a state. A state value already in use yields ErrDuplicate.
func (r *OAuthStateRepository) Create(ctx context.Context, state *models.OAuthState) error {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_oauth_states (id, state, user_id, created_at) VALUES (:id, :state, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, state); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create oauth state: %w", err)
	}
	return nil
}

// FindByState returns the pending state or sql.ErrNoRows.
func (r *OAuthStateRepository) FindByState(ctx context.Context, state string) (*models.OAuthState, error) {
	const query = `SELECT id, state, user_id, created_at FROM user_oauth_states WHERE state = $1 LIMIT 1`
	var out models.OAuthState
	if err := r.db.GetContext(ctx, &out, query, state); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find oauth state: %w", err)
	}
	return &out, nil
}

func (r *OAuthStateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM user_oauth_states WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete oauth state: %w", err)
	}
	return nil
}

// DeleteCreatedBefore removes abandoned states and returns how many were deleted.
func (r *OAuthStateRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM user_oauth_states WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep oauth states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep oauth states: %w", err)
	}
	return n, nil
}
