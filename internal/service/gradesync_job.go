package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/dto"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/export"
	"github.com/noah-isme/sma-lms-gradesync/pkg/jobs"
	"github.com/noah-isme/sma-lms-gradesync/pkg/storage"
)

// JobTypeGradeSync identifies grade transfer jobs on the queue.
const JobTypeGradeSync = "lms.post_grades"

// GradeSyncResultFilename is the attachment name of mailed results.
const GradeSyncResultFilename = "result.csv"

// GradeSyncPayload is carried by grade transfer jobs.
type GradeSyncPayload struct {
	UnitID string
	UserID string
}

// GradeSyncResultKey is where the latest result of a unit is stored. Each run overwrites it.
func GradeSyncResultKey(unitID string) string {
	return path.Join("units", unitID, "lms_post_grades_job_result.csv")
}

type syncQueue interface {
	Enqueue(job jobs.Job) error
	Active(key string) bool
}

type syncMarker interface {
	Mark(ctx context.Context, unitID, jobID string, ttl time.Duration) error
	Clear(ctx context.Context, unitID string) error
	Exists(ctx context.Context, unitID string) (bool, error)
}

type mappingLookup interface {
	GetByUnit(ctx context.Context, unitID string) (*models.UnitMapping, error)
}

type tokenLookup interface {
	LatestToken(ctx context.Context, userID string) (*models.OAuthToken, error)
}

// GradeSyncJobConfig governs triggering and run markers.
type GradeSyncJobConfig struct {
	Enabled bool
	// MinTokenLifetime is how long the caller's LMS token must remain valid for a run to start.
	MinTokenLifetime time.Duration
	MarkerTTL        time.Duration
}

// GradeSyncJobService accepts grade transfer requests and serves their results.
type GradeSyncJobService struct {
	queue    syncQueue
	marker   syncMarker
	mappings mappingLookup
	tokens   tokenLookup
	store    storage.ArtifactStore
	signer   *storage.SignedURLSigner
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      GradeSyncJobConfig
	now      func() time.Time
}

// NewGradeSyncJobService constructs the job service. marker may be nil when no shared store
// is configured.
func NewGradeSyncJobService(queue syncQueue, marker syncMarker, mappings mappingLookup, tokens tokenLookup, store storage.ArtifactStore, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg GradeSyncJobConfig) *GradeSyncJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinTokenLifetime <= 0 {
		cfg.MinTokenLifetime = 10 * time.Minute
	}
	if cfg.MarkerTTL <= 0 {
		cfg.MarkerTTL = 2 * time.Hour
	}
	return &GradeSyncJobService{
		queue:    queue,
		marker:   marker,
		mappings: mappings,
		tokens:   tokens,
		store:    store,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Trigger checks that a transfer can start for the unit and queues it.
func (s *GradeSyncJobService) Trigger(ctx context.Context, unitID, userID string) (*dto.GradeSyncTriggerResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrLMSDisabled, "")
	}

	mapping, err := s.mappings.GetByUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMappingMissing, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lms mapping")
	}
	if strings.TrimSpace(mapping.OrgUnitID) == "" {
		return nil, appErrors.Clone(appErrors.ErrMappingMissing, "")
	}

	token, err := s.tokens.LatestToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == nil || !token.LiveFor(s.now(), s.cfg.MinTokenLifetime) {
		return nil, appErrors.Clone(appErrors.ErrLMSTokenMissing, "lms access token missing or about to expire, log in to the lms again")
	}

	running, err := s.IsRunning(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, appErrors.Clone(appErrors.ErrSyncRunning, "")
	}

	jobID, err := s.Enqueue(ctx, unitID, userID)
	if err != nil {
		return nil, err
	}
	return &dto.GradeSyncTriggerResponse{JobID: jobID, UnitID: unitID}, nil
}

// Enqueue queues a transfer without precondition checks.
func (s *GradeSyncJobService) Enqueue(ctx context.Context, unitID, userID string) (string, error) {
	if s.queue == nil {
		return "", appErrors.Wrap(fmt.Errorf("queue not configured"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue grade transfer")
	}
	jobID := uuid.NewString()
	if s.marker != nil {
		if err := s.marker.Mark(ctx, unitID, jobID, s.cfg.MarkerTTL); err != nil {
			s.logger.Sugar().Warnw("failed to mark grade transfer running", "unit_id", unitID, "error", err)
		}
	}

	job := jobs.Job{
		ID:      jobID,
		Type:    JobTypeGradeSync,
		Key:     unitID,
		Payload: GradeSyncPayload{UnitID: unitID, UserID: userID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		if s.marker != nil {
			_ = s.marker.Clear(ctx, unitID)
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue grade transfer")
	}
	s.metrics.RecordJobEnqueued()
	s.logger.Sugar().Infow("grade transfer queued", "unit_id", unitID, "user_id", userID, "job_id", jobID)
	return jobID, nil
}

// Claim marks the unit as running for a transfer executed outside the queue, such as one run
// from the CLI. The worker clears the marker when the run ends.
func (s *GradeSyncJobService) Claim(ctx context.Context, unitID string) (string, error) {
	running, err := s.IsRunning(ctx, unitID)
	if err != nil {
		return "", err
	}
	if running {
		return "", appErrors.Clone(appErrors.ErrSyncRunning, "")
	}
	jobID := uuid.NewString()
	if s.marker != nil {
		if err := s.marker.Mark(ctx, unitID, jobID, s.cfg.MarkerTTL); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark grade transfer running")
		}
	}
	return jobID, nil
}

// IsRunning reports whether a transfer for the unit is queued or executing. Two concurrent
// triggers can both observe false; the check is advisory.
func (s *GradeSyncJobService) IsRunning(ctx context.Context, unitID string) (bool, error) {
	if s.queue != nil && s.queue.Active(unitID) {
		return true, nil
	}
	if s.marker == nil {
		return false, nil
	}
	marked, err := s.marker.Exists(ctx, unitID)
	if err != nil {
		s.logger.Sugar().Warnw("running marker lookup failed", "unit_id", unitID, "error", err)
		return false, nil
	}
	return marked, nil
}

// Availability reports whether a result is stored and whether a run is in progress.
func (s *GradeSyncJobService) Availability(ctx context.Context, unitID string) (*dto.GradeSyncAvailabilityResponse, error) {
	available, err := s.store.Exists(ctx, GradeSyncResultKey(unitID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade transfer result")
	}
	running, err := s.IsRunning(ctx, unitID)
	if err != nil {
		return nil, err
	}
	return &dto.GradeSyncAvailabilityResponse{Available: available, Running: running}, nil
}

// Result returns the stored CSV of the unit's latest transfer.
func (s *GradeSyncJobService) Result(ctx context.Context, unitID string) ([]byte, error) {
	rc, err := s.store.Open(ctx, GradeSyncResultKey(unitID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade transfer result for unit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open grade transfer result")
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read grade transfer result")
	}
	return data, nil
}

// ResolveResultLink validates a signed result link and returns the unit and result it names.
func (s *GradeSyncJobService) ResolveResultLink(ctx context.Context, token string) (string, []byte, error) {
	if s.signer == nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "result links are disabled")
	}
	unitID, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired result link")
	}
	if key != GradeSyncResultKey(unitID) {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "result link mismatch")
	}
	data, err := s.Result(ctx, unitID)
	if err != nil {
		return "", nil, err
	}
	return unitID, data, nil
}

type syncRunner interface {
	Run(ctx context.Context, unitID, userID string) (*models.SyncReport, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type resultNotifier interface {
	NotifyResult(ctx context.Context, unitID, userID string) error
}

// GradeSyncWorker executes queued grade transfers.
type GradeSyncWorker struct {
	runner   syncRunner
	renderer csvRenderer
	store    storage.ArtifactStore
	notifier resultNotifier
	marker   syncMarker
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewGradeSyncWorker constructs a worker. notifier and marker are optional.
func NewGradeSyncWorker(runner syncRunner, renderer csvRenderer, store storage.ArtifactStore, notifier resultNotifier, marker syncMarker, metrics *MetricsService, logger *zap.Logger) *GradeSyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeSyncWorker{
		runner:   runner,
		renderer: renderer,
		store:    store,
		notifier: notifier,
		marker:   marker,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes a queue job.
func (w *GradeSyncWorker) Handle(ctx context.Context, job jobs.Job) error {
	var payload GradeSyncPayload
	switch p := job.Payload.(type) {
	case GradeSyncPayload:
		payload = p
	case *GradeSyncPayload:
		if p != nil {
			payload = *p
		}
	default:
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if payload.UnitID == "" {
		return fmt.Errorf("job %s has no unit", job.ID)
	}
	_, err := w.Process(ctx, payload.UnitID, payload.UserID)
	return err
}

// Process runs the transfer, stores the result and notifies the requesting user. When the run
// itself fails nothing is stored or sent.
func (w *GradeSyncWorker) Process(ctx context.Context, unitID, userID string) (*models.SyncReport, error) {
	log := w.logger.Sugar().With("unit_id", unitID, "user_id", userID)
	started := w.now()
	if w.marker != nil {
		defer func() {
			if err := w.marker.Clear(context.WithoutCancel(ctx), unitID); err != nil {
				log.Warnw("failed to clear running marker", "error", err)
			}
		}()
	}

	report, err := w.runner.Run(ctx, unitID, userID)
	if err != nil {
		w.metrics.ObserveSyncRun(SyncOutcomeFailed, nil, w.now().Sub(started))
		log.Errorw("grade transfer failed", "error", err)
		return nil, fmt.Errorf("grade transfer for unit %s: %w", unitID, err)
	}

	data, err := w.renderer.Render(ReportDataset(report))
	if err != nil {
		return report, fmt.Errorf("render grade transfer result: %w", err)
	}
	if err := w.store.Save(ctx, GradeSyncResultKey(unitID), data); err != nil {
		return report, fmt.Errorf("store grade transfer result: %w", err)
	}
	w.metrics.ObserveSyncRun(SyncOutcomeCompleted, report, w.now().Sub(started))

	counts := report.Counts()
	log.Infow("grade transfer finished",
		"rows", len(report.Rows),
		"success", counts[models.SyncStatusSuccess],
		"failed", counts[models.SyncStatusFailed],
		"skipped", counts[models.SyncStatusSkipped],
	)

	if w.notifier != nil {
		if err := w.notifier.NotifyResult(ctx, unitID, userID); err != nil {
			log.Warnw("grade transfer notification failed", "error", err)
		}
	}
	return report, nil
}

// ReportDataset lays a report out under the result CSV headers.
func ReportDataset(report *models.SyncReport) export.Dataset {
	data := export.Dataset{Headers: models.SyncResultHeaders}
	if report == nil {
		return data
	}
	data.Rows = make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		data.Rows = append(data.Rows, row.Record())
	}
	return data
}
