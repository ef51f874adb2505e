package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryListByUnit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "unit_id", "user_id", "student_id", "username", "email", "display_name", "grade", "active"}).
		AddRow("e-1", "unit-1", "u-1", "s1", "ann", "ann@example.edu", "Ann", 72.5, true).
		AddRow("e-2", "unit-1", "u-2", "", "bob", "bob@example.edu", "Bob", nil, false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e JOIN users u ON u.id = e.user_id WHERE e.unit_id = $1 ORDER BY e.id")).
		WithArgs("unit-1").
		WillReturnRows(rows)

	list, err := repo.ListByUnit(context.Background(), "unit-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Grade)
	assert.Equal(t, 72.5, *list[0].Grade)
	assert.True(t, list[0].Active)
	assert.Nil(t, list[1].Grade)
	assert.False(t, list[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByUnitError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("FROM enrollments").WillReturnError(errors.New("db down"))

	_, err := repo.ListByUnit(context.Background(), "unit-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list unit enrollments")
}
