package service

import (
	"context"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/lms"
)

type enrollmentReader interface {
	ListByUnit(ctx context.Context, unitID string) ([]models.Enrollment, error)
}

// Roster indexes a unit's enrollments for matching against an LMS class list. Entries are
// matched by institution student id, then username, then email; the first enrollment listed
// wins when several share a value.
type Roster struct {
	enrollments []models.Enrollment
	byStudentID map[string]int
	byUsername  map[string]int
	byEmail     map[string]int
}

// NewRoster builds the lookup indexes over enrollments, which are kept in the given order.
func NewRoster(enrollments []models.Enrollment) *Roster {
	r := &Roster{
		enrollments: enrollments,
		byStudentID: make(map[string]int, len(enrollments)),
		byUsername:  make(map[string]int, len(enrollments)),
		byEmail:     make(map[string]int, len(enrollments)),
	}
	for i, e := range enrollments {
		indexFirst(r.byStudentID, e.StudentID, i)
		indexFirst(r.byUsername, e.Username, i)
		indexFirst(r.byEmail, e.Email, i)
	}
	return r
}

func indexFirst(set map[string]int, key string, i int) {
	if key == "" {
		return
	}
	if _, ok := set[key]; !ok {
		set[key] = i
	}
}

// Match returns the position of the enrollment the entry refers to, or -1. Empty remote fields
// never match.
func (r *Roster) Match(entry lms.ClassListEntry) int {
	if entry.OrgDefinedID != "" {
		if i, ok := r.byStudentID[entry.OrgDefinedID]; ok {
			return i
		}
	}
	if entry.UserName != "" {
		if i, ok := r.byUsername[entry.UserName]; ok {
			return i
		}
	}
	if entry.Email != "" {
		if i, ok := r.byEmail[entry.Email]; ok {
			return i
		}
	}
	return -1
}

// Lookup is Match returning the enrollment itself.
func (r *Roster) Lookup(entry lms.ClassListEntry) *models.Enrollment {
	i := r.Match(entry)
	if i < 0 {
		return nil
	}
	e := r.enrollments[i]
	return &e
}

// Enrollments returns the indexed enrollments in their original order.
func (r *Roster) Enrollments() []models.Enrollment {
	return r.enrollments
}

// Len is the number of enrollments.
func (r *Roster) Len() int {
	return len(r.enrollments)
}

// RosterService reconciles LMS class list entries with unit enrollments.
type RosterService struct {
	enrollments enrollmentReader
}

// NewRosterService constructs a RosterService.
func NewRosterService(enrollments enrollmentReader) *RosterService {
	return &RosterService{enrollments: enrollments}
}

// LoadRoster reads every enrollment of the unit, active or withdrawn.
func (s *RosterService) LoadRoster(ctx context.Context, unitID string) (*Roster, error) {
	enrollments, err := s.enrollments.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit enrollments")
	}
	return NewRoster(enrollments), nil
}

// FindInternalRecord returns the enrollment entry refers to, or nil when there is none. It loads
// the roster on every call; a sync run loads it once through LoadRoster and matches with
// Roster.Match instead. Both go through the same lookup.
func (s *RosterService) FindInternalRecord(ctx context.Context, unitID string, entry lms.ClassListEntry) (*models.Enrollment, error) {
	roster, err := s.LoadRoster(ctx, unitID)
	if err != nil {
		return nil, err
	}
	return roster.Lookup(entry), nil
}
