package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/lms"
)

type gradeMappingStore interface {
	GetByUnit(ctx context.Context, unitID string) (*models.UnitMapping, error)
	SetGradeObjectID(ctx context.Context, unitID string, gradeObjectID *string) error
}

type lmsTokenSource interface {
	AccessTokenFor(ctx context.Context, userID string) (*http.Client, error)
}

type rosterLoader interface {
	LoadRoster(ctx context.Context, unitID string) (*Roster, error)
}

type lmsAPI interface {
	GetGradeObject(ctx context.Context, orgUnitID, gradeObjectID string) (*lms.GradeObject, error)
	CreateGradeObject(ctx context.Context, orgUnitID string, in lms.GradeObjectInput) (*lms.GradeObject, error)
	ClassList(ctx context.Context, orgUnitID string) ([]lms.ClassListEntry, error)
	PutGrade(ctx context.Context, orgUnitID, gradeObjectID, userIdentifier string, points float64) (lms.RateLimit, error)
	GradeSetup(ctx context.Context, orgUnitID string) (*lms.GradeSetup, error)
}

// GradeSyncConfig configures the grade transfer engine.
type GradeSyncConfig struct {
	Enabled     bool
	APIHost     string
	APIVersion  string
	ProductName string
}

// GradeSyncService pushes unit grades into the mapped LMS org unit.
type GradeSyncService struct {
	mappings  gradeMappingStore
	tokens    lmsTokenSource
	roster    rosterLoader
	newClient func(*http.Client) lmsAPI
	cfg       GradeSyncConfig
	metrics   *MetricsService
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// NewGradeSyncService constructs the engine.
func NewGradeSyncService(mappings gradeMappingStore, tokens lmsTokenSource, roster rosterLoader, cfg GradeSyncConfig, metrics *MetricsService, logger *zap.Logger) *GradeSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.ProductName) == "" {
		cfg.ProductName = "Assessments"
	}
	s := &GradeSyncService{
		mappings: mappings,
		tokens:   tokens,
		roster:   roster,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		sleep:    sleepContext,
	}
	s.newClient = func(httpClient *http.Client) lmsAPI {
		return lms.NewClient(httpClient, s.cfg.APIHost, s.cfg.APIVersion)
	}
	return s
}

// Endpoint returns the configured LMS API host.
func (s *GradeSyncService) Endpoint() string {
	return s.cfg.APIHost
}

// Run transfers every reconcilable grade of the unit using userID's LMS token and returns one
// row per class list entry followed by one row per active enrollment the class list lacks.
// Only precondition and setup failures are returned as errors; per-student failures become rows.
func (s *GradeSyncService) Run(ctx context.Context, unitID, userID string) (*models.SyncReport, error) {
	mapping, api, err := s.prepare(ctx, unitID, userID)
	if err != nil {
		return nil, err
	}
	log := s.logger.Sugar().With("unit_id", unitID, "org_unit_id", mapping.OrgUnitID)

	gradeObjectID, err := s.ensureGradeItem(ctx, api, mapping)
	if err != nil {
		return nil, err
	}

	entries, err := api.ClassList(ctx, mapping.OrgUnitID)
	if err != nil {
		log.Warnw("class list fetch failed", "error", err)
		return nil, appErrors.Wrap(err, appErrors.ErrClassListFetchFailed.Code, appErrors.ErrClassListFetchFailed.Status, appErrors.ErrClassListFetchFailed.Message)
	}

	roster, err := s.roster.LoadRoster(ctx, unitID)
	if err != nil {
		return nil, err
	}

	report := &models.SyncReport{UnitID: unitID, Rows: make([]models.SyncResultRow, 0, len(entries))}
	done := make([]bool, roster.Len())
	enrollments := roster.Enrollments()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("grade transfer interrupted: %w", err)
		}
		if !entry.IsStudent() {
			report.Rows = append(report.Rows, models.SyncResultRow{
				Status:     models.SyncStatusIgnored,
				ExternalID: entry.OrgDefinedID,
				Message:    fmt.Sprintf("%s is not a student", models.DescribeStudent(entry.OrgDefinedID, entry.DisplayName)),
			})
			continue
		}

		idx := roster.Match(entry)
		if idx < 0 {
			report.Rows = append(report.Rows, models.SyncResultRow{
				Status:     models.SyncStatusNotFoundInInternal,
				ExternalID: entry.OrgDefinedID,
				Message:    fmt.Sprintf("No %s details for %s found from LMS", s.cfg.ProductName, models.DescribeStudent(entry.OrgDefinedID, entry.DisplayName)),
			})
			continue
		}
		done[idx] = true
		enrollment := enrollments[idx]

		if !enrollment.HasPostableGrade() {
			report.Rows = append(report.Rows, models.SyncResultRow{
				Status:        models.SyncStatusSkipped,
				ExternalID:    entry.OrgDefinedID,
				InternalGrade: enrollment.Grade,
				Message:       fmt.Sprintf("No grade for %s in %s", models.DescribeStudent(entry.OrgDefinedID, enrollment.Username), s.cfg.ProductName),
			})
			continue
		}

		grade := *enrollment.Grade
		limit, err := api.PutGrade(ctx, mapping.OrgUnitID, gradeObjectID, entry.Identifier, grade)
		if err != nil {
			log.Warnw("grade post failed", "identifier", entry.Identifier, "username", enrollment.Username, "error", err)
			report.Rows = append(report.Rows, models.SyncResultRow{
				Status:        models.SyncStatusFailed,
				ExternalID:    entry.OrgDefinedID,
				InternalGrade: enrollment.Grade,
				Message:       fmt.Sprintf("Error posting grade %s for %s", models.FormatGrade(enrollment.Grade), models.DescribeStudent(entry.OrgDefinedID, entry.DisplayName)),
			})
			continue
		}
		report.Rows = append(report.Rows, models.SyncResultRow{
			Status:        models.SyncStatusSuccess,
			ExternalID:    entry.OrgDefinedID,
			InternalGrade: enrollment.Grade,
			Message:       fmt.Sprintf("Posted grade %s for %s", models.FormatGrade(enrollment.Grade), models.DescribeStudent(entry.OrgDefinedID, enrollment.Username)),
		})

		if wait := limit.Backoff(); wait > 0 {
			log.Infow("lms rate limit low, pausing", "remaining", limit.Remaining, "cost", limit.Cost, "wait", wait)
			s.metrics.ObserveBackoff(wait)
			if err := s.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("grade transfer interrupted: %w", err)
			}
		}
	}

	for i, enrollment := range enrollments {
		if done[i] || !enrollment.Active {
			continue
		}
		report.Rows = append(report.Rows, models.SyncResultRow{
			Status:        models.SyncStatusNotFoundInExternal,
			ExternalID:    enrollment.StudentID,
			InternalGrade: enrollment.Grade,
			Message:       fmt.Sprintf("%s not found in LMS class list", models.DescribeStudent(enrollment.StudentID, enrollment.Username)),
		})
	}

	return report, nil
}

// GradesWeighted reports whether the mapped org unit computes final grades from weighted
// categories.
func (s *GradeSyncService) GradesWeighted(ctx context.Context, unitID, userID string) (bool, error) {
	mapping, api, err := s.prepare(ctx, unitID, userID)
	if err != nil {
		return false, err
	}
	setup, err := api.GradeSetup(ctx, mapping.OrgUnitID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrLMSRequestFailed.Code, appErrors.ErrLMSRequestFailed.Status, "failed to read lms grade setup")
	}
	return setup.Weighted(), nil
}

// prepare checks the run preconditions in order and returns an API client bound to the
// user's token.
func (s *GradeSyncService) prepare(ctx context.Context, unitID, userID string) (*models.UnitMapping, lmsAPI, error) {
	if !s.cfg.Enabled || s.cfg.APIHost == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrLMSDisabled, "")
	}

	mapping, err := s.mappings.GetByUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrMappingMissing, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lms mapping")
	}
	if strings.TrimSpace(mapping.OrgUnitID) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrMappingMissing, "")
	}

	httpClient, err := s.tokens.AccessTokenFor(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if httpClient == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrLMSTokenMissing, "")
	}
	return mapping, s.newClient(httpClient), nil
}

// ensureGradeItem confirms the stored grade item still exists, creating a new one otherwise.
func (s *GradeSyncService) ensureGradeItem(ctx context.Context, api lmsAPI, mapping *models.UnitMapping) (string, error) {
	log := s.logger.Sugar().With("unit_id", mapping.UnitID, "org_unit_id", mapping.OrgUnitID)

	if mapping.GradeObjectID != nil && *mapping.GradeObjectID != "" {
		stored := *mapping.GradeObjectID
		obj, err := api.GetGradeObject(ctx, mapping.OrgUnitID, stored)
		if err == nil && obj.IDString() == stored {
			return stored, nil
		}
		log.Infow("stored grade item not found, recreating", "grade_object_id", stored, "error", err)
		mapping.GradeObjectID = nil
		if err := s.mappings.SetGradeObjectID(ctx, mapping.UnitID, nil); err != nil {
			log.Warnw("failed to clear grade item", "error", err)
		}
	}

	created, err := api.CreateGradeObject(ctx, mapping.OrgUnitID, lms.ResultGradeObject(s.cfg.ProductName))
	if err != nil {
		log.Warnw("grade item creation failed", "error", err)
		return "", appErrors.Wrap(err, appErrors.ErrGradeItemCreationFailed.Code, appErrors.ErrGradeItemCreationFailed.Status, appErrors.ErrGradeItemCreationFailed.Message)
	}

	id := created.IDString()
	mapping.GradeObjectID = &id
	if err := s.mappings.SetGradeObjectID(ctx, mapping.UnitID, &id); err != nil {
		log.Errorw("failed to store grade item id", "grade_object_id", id, "error", err)
	}
	log.Infow("grade item created", "grade_object_id", id)
	return id, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
