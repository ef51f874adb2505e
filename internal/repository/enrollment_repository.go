package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

// EnrollmentRepository reads unit enrollments joined with student identity fields.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByUnit returns every enrollment of the unit, withdrawn ones included.
func (r *EnrollmentRepository) ListByUnit(ctx context.Context, unitID string) ([]models.Enrollment, error) {
	const query = `SELECT e.id, e.unit_id, e.user_id, COALESCE(u.student_id, '') AS student_id, u.username, u.email,
u.full_name AS display_name, e.grade, e.enrolled AS active
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.unit_id = $1
ORDER BY e.id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, unitID); err != nil {
		return nil, fmt.Errorf("list unit enrollments: %w", err)
	}
	return enrollments, nil
}
