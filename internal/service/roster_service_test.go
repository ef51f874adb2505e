package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/lms"
)

type enrollmentReaderStub struct {
	enrollments []models.Enrollment
	err         error
	calls       int
}

func (s *enrollmentReaderStub) ListByUnit(ctx context.Context, unitID string) ([]models.Enrollment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.enrollments, nil
}

func TestRosterMatchPriority(t *testing.T) {
	roster := NewRoster([]models.Enrollment{
		{ID: "e1", StudentID: "S1", Username: "alice", Email: "alice@example.edu"},
		{ID: "e2", StudentID: "S2", Username: "bob", Email: "bob@example.edu"},
		{ID: "e3", StudentID: "S3", Username: "carol", Email: "carol@example.edu"},
	})

	// id beats username and email
	match := roster.Lookup(lms.ClassListEntry{OrgDefinedID: "S2", UserName: "alice", Email: "carol@example.edu"})
	require.NotNil(t, match)
	assert.Equal(t, "e2", match.ID)

	// username beats email
	match = roster.Lookup(lms.ClassListEntry{OrgDefinedID: "unknown", UserName: "carol", Email: "alice@example.edu"})
	require.NotNil(t, match)
	assert.Equal(t, "e3", match.ID)

	match = roster.Lookup(lms.ClassListEntry{Email: "bob@example.edu"})
	require.NotNil(t, match)
	assert.Equal(t, "e2", match.ID)

	assert.Nil(t, roster.Lookup(lms.ClassListEntry{OrgDefinedID: "S9", UserName: "zed", Email: "zed@example.edu"}))
}

func TestRosterEmptyFieldsNeverMatch(t *testing.T) {
	roster := NewRoster([]models.Enrollment{
		{ID: "e1", StudentID: "", Username: "", Email: ""},
		{ID: "e2", StudentID: "S2", Username: "bob", Email: ""},
	})

	assert.Equal(t, -1, roster.Match(lms.ClassListEntry{}))
	assert.Equal(t, -1, roster.Match(lms.ClassListEntry{Email: ""}))
	assert.Equal(t, 1, roster.Match(lms.ClassListEntry{UserName: "bob"}))
}

func TestRosterFirstMatchWins(t *testing.T) {
	roster := NewRoster([]models.Enrollment{
		{ID: "e1", Username: "dup"},
		{ID: "e2", Username: "dup"},
	})

	match := roster.Lookup(lms.ClassListEntry{UserName: "dup"})
	require.NotNil(t, match)
	assert.Equal(t, "e1", match.ID)
	assert.Equal(t, 2, roster.Len())
}

func TestRosterServiceFindInternalRecordIncludesInactive(t *testing.T) {
	reader := &enrollmentReaderStub{enrollments: []models.Enrollment{
		{ID: "e1", StudentID: "S1", Active: false},
	}}
	svc := NewRosterService(reader)

	match, err := svc.FindInternalRecord(context.Background(), "unit-1", lms.ClassListEntry{OrgDefinedID: "S1"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "e1", match.ID)

	match, err = svc.FindInternalRecord(context.Background(), "unit-1", lms.ClassListEntry{OrgDefinedID: "S2"})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestRosterServiceLoadError(t *testing.T) {
	svc := NewRosterService(&enrollmentReaderStub{err: errors.New("db down")})

	_, err := svc.LoadRoster(context.Background(), "unit-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
