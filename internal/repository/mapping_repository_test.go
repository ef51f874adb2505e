package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

func TestMappingRepositoryGetByUnit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "unit_id", "org_unit_id", "grade_object_id", "created_at", "updated_at"}).
		AddRow("m-1", "unit-1", "6606", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, unit_id, org_unit_id, grade_object_id, created_at, updated_at FROM lms_unit_mappings WHERE unit_id = $1")).
		WithArgs("unit-1").
		WillReturnRows(rows)

	mapping, err := repo.GetByUnit(context.Background(), "unit-1")
	require.NoError(t, err)
	assert.Equal(t, "6606", mapping.OrgUnitID)
	assert.Nil(t, mapping.GradeObjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lms_unit_mappings")).
		WithArgs(sqlmock.AnyArg(), "unit-1", "6606", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.UnitMapping{UnitID: "unit-1", OrgUnitID: "6606"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	gradeObjectID := "42"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lms_unit_mappings")).
		WithArgs(sqlmock.AnyArg(), "unit-1", "6606", "42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mapping := &models.UnitMapping{UnitID: "unit-1", OrgUnitID: "6606", GradeObjectID: &gradeObjectID}
	require.NoError(t, repo.Create(context.Background(), mapping))
	assert.NotEmpty(t, mapping.ID)
	assert.False(t, mapping.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lms_unit_mappings SET org_unit_id = $1, grade_object_id = $2, updated_at = $3 WHERE unit_id = $4")).
		WithArgs("7000", nil, sqlmock.AnyArg(), "unit-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.UnitMapping{UnitID: "unit-9", OrgUnitID: "7000"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositorySetGradeObjectID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	id := "77"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lms_unit_mappings SET grade_object_id = $1, updated_at = $2 WHERE unit_id = $3")).
		WithArgs("77", sqlmock.AnyArg(), "unit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lms_unit_mappings SET grade_object_id = $1, updated_at = $2 WHERE unit_id = $3")).
		WithArgs(nil, sqlmock.AnyArg(), "unit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetGradeObjectID(context.Background(), "unit-1", &id))
	require.NoError(t, repo.SetGradeObjectID(context.Background(), "unit-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepositoryDeleteByUnit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMappingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lms_unit_mappings WHERE unit_id = $1")).
		WithArgs("unit-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteByUnit(context.Background(), "unit-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
