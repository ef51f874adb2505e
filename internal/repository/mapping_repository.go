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

// MappingRepository persists unit to LMS org unit mappings.
type MappingRepository struct {
	db *sqlx.DB
}

// NewMappingRepository constructs the repository.
func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetByUnit returns the mapping for a unit or sql.ErrNoRows.
func (r *MappingRepository) GetByUnit(ctx context.Context, unitID string) (*models.UnitMapping, error) {
	const query = `SELECT id, unit_id, org_unit_id, grade_object_id, created_at, updated_at FROM lms_unit_mappings WHERE unit_id = $1`
	var mapping models.UnitMapping
	if err := r.db.GetContext(ctx, &mapping, query, unitID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get lms mapping: %w", err)
	}
	return &mapping, nil
}

// Create inserts a mapping. A second mapping for the same unit yields ErrDuplicate.
func (r *MappingRepository) Create(ctx context.Context, mapping *models.UnitMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now
	const query = `INSERT INTO lms_unit_mappings (id, unit_id, org_unit_id, grade_object_id, created_at, updated_at)
VALUES (:id, :unit_id, :org_unit_id, :grade_object_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mapping); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lms mapping: %w", err)
	}
	return nil
}

// Update rewrites the org unit and grade item of an existing mapping.
func (r *MappingRepository) Update(ctx context.Context, mapping *models.UnitMapping) error {
	mapping.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lms_unit_mappings SET org_unit_id = $1, grade_object_id = $2, updated_at = $3 WHERE unit_id = $4`
	res, err := r.db.ExecContext(ctx, query, mapping.OrgUnitID, mapping.GradeObjectID, mapping.UpdatedAt, mapping.UnitID)
	if err != nil {
		return fmt.Errorf("update lms mapping: %w", err)
	}
	return expectAffected(res)
}

// SetGradeObjectID stores (or clears, when id is nil) the remote grade item of a unit.
func (r *MappingRepository) SetGradeObjectID(ctx context.Context, unitID string, gradeObjectID *string) error {
	const query = `UPDATE lms_unit_mappings SET grade_object_id = $1, updated_at = $2 WHERE unit_id = $3`
	res, err := r.db.ExecContext(ctx, query, gradeObjectID, time.Now().UTC(), unitID)
	if err != nil {
		return fmt.Errorf("set lms grade object: %w", err)
	}
	return expectAffected(res)
}

// DeleteByUnit removes the mapping; deleting a missing mapping is not an error.
func (r *MappingRepository) DeleteByUnit(ctx context.Context, unitID string) error {
	const query = `DELETE FROM lms_unit_mappings WHERE unit_id = $1`
	if _, err := r.db.ExecContext(ctx, query, unitID); err != nil {
		return fmt.Errorf("delete lms mapping: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
