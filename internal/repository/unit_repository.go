package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

// UnitRepository reads units and staff assignments.
type UnitRepository struct {
	db *sqlx.DB
}

func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// FindByID returns a unit or sql.ErrNoRows.
func (r *UnitRepository) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	const query = `SELECT id, code, name FROM units WHERE id = $1 LIMIT 1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find unit by id: %w", err)
	}
	return &unit, nil
}

// IsConvenor reports whether the user convenes the unit.
func (r *UnitRepository) IsConvenor(ctx context.Context, userID, unitID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM unit_roles WHERE unit_id = $1 AND user_id = $2 AND role = 'CONVENOR')`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, unitID, userID); err != nil {
		return false, fmt.Errorf("check unit convenor: %w", err)
	}
	return ok, nil
}
