package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/dto"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/internal/repository"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
)

type mappingStore interface {
	GetByUnit(ctx context.Context, unitID string) (*models.UnitMapping, error)
	Create(ctx context.Context, mapping *models.UnitMapping) error
	Update(ctx context.Context, mapping *models.UnitMapping) error
	DeleteByUnit(ctx context.Context, unitID string) error
}

// MappingService manages the link between a unit and its LMS org unit.
type MappingService struct {
	repo      mappingStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMappingService constructs a MappingService.
func NewMappingService(repo mappingStore, validate *validator.Validate, logger *zap.Logger) *MappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MappingService{repo: repo, validator: validate, logger: logger}
}

// Get returns the unit's mapping.
func (s *MappingService) Get(ctx context.Context, unitID string) (*models.UnitMapping, error) {
	mapping, err := s.repo.GetByUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit is not linked to an lms org unit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lms mapping")
	}
	return mapping, nil
}

// Create links a unit that has no mapping yet.
func (s *MappingService) Create(ctx context.Context, unitID string, req dto.LMSMappingRequest) (*models.UnitMapping, error) {
	if err := s.validate(unitID, &req); err != nil {
		return nil, err
	}
	mapping := &models.UnitMapping{UnitID: unitID, OrgUnitID: req.OrgUnitID, GradeObjectID: req.GradeObjectID}
	if err := s.repo.Create(ctx, mapping); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "unit is already linked to an lms org unit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lms mapping")
	}
	s.logger.Sugar().Infow("lms mapping created", "unit_id", unitID, "org_unit_id", mapping.OrgUnitID)
	return mapping, nil
}

// Update replaces the org unit and grade item of an existing mapping. Changing the org unit
// without naming a grade item resets the grade item so the next run creates one.
func (s *MappingService) Update(ctx context.Context, unitID string, req dto.LMSMappingRequest) (*models.UnitMapping, error) {
	if err := s.validate(unitID, &req); err != nil {
		return nil, err
	}
	mapping, err := s.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}

	if req.GradeObjectID != nil || mapping.OrgUnitID != req.OrgUnitID {
		mapping.GradeObjectID = req.GradeObjectID
	}
	mapping.OrgUnitID = req.OrgUnitID
	if err := s.repo.Update(ctx, mapping); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unit is not linked to an lms org unit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lms mapping")
	}
	return mapping, nil
}

// Delete unlinks the unit. Deleting an absent mapping succeeds.
func (s *MappingService) Delete(ctx context.Context, unitID string) error {
	if err := s.repo.DeleteByUnit(ctx, unitID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lms mapping")
	}
	return nil
}

func (s *MappingService) validate(unitID string, req *dto.LMSMappingRequest) error {
	if strings.TrimSpace(unitID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "unit id required")
	}
	req.OrgUnitID = strings.TrimSpace(req.OrgUnitID)
	if req.GradeObjectID != nil {
		trimmed := strings.TrimSpace(*req.GradeObjectID)
		if trimmed == "" {
			req.GradeObjectID = nil
		} else {
			req.GradeObjectID = &trimmed
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lms mapping payload")
	}
	return nil
}
