// Package app assembles the grade transfer services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/repository"
	"github.com/noah-isme/sma-lms-gradesync/internal/service"
	"github.com/noah-isme/sma-lms-gradesync/pkg/cache"
	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
	"github.com/noah-isme/sma-lms-gradesync/pkg/database"
	"github.com/noah-isme/sma-lms-gradesync/pkg/export"
	"github.com/noah-isme/sma-lms-gradesync/pkg/jobs"
	"github.com/noah-isme/sma-lms-gradesync/pkg/mailer"
	"github.com/noah-isme/sma-lms-gradesync/pkg/secrets"
	"github.com/noah-isme/sma-lms-gradesync/pkg/storage"
)

// QueueName names the grade transfer worker pool in logs.
const QueueName = "gradesync"

// App holds the wired services shared by the API server and the operator CLI.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Metrics *service.MetricsService

	Units    *repository.UnitRepository
	Users    *repository.UserRepository
	Store    storage.ArtifactStore
	Signer   *storage.SignedURLSigner
	Exporter *export.CSVExporter

	Auth         *service.AuthService
	OAuth        *service.OAuthService
	Mappings     *service.MappingService
	GradeSync    *service.GradeSyncService
	Jobs         *service.GradeSyncJobService
	Worker       *service.GradeSyncWorker
	Notification *service.NotificationService
	Queue        *jobs.Queue
}

// New connects to Postgres and Redis and wires every service. The queue is built but not
// started.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient == nil {
		logger.Warn("redis not configured, running grade transfer markers are local to this process")
	}

	a, err := Wire(cfg, logger, db, redisClient)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	return a, nil
}

// Wire builds the services over already open connections. redisClient may be nil.
func Wire(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sealer, err := newSealer(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewArtifactStore(cfg.GradeSync)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	var signer *storage.SignedURLSigner
	if cfg.GradeSync.SignedURLSecret != "" {
		signer = storage.NewSignedURLSigner(cfg.GradeSync.SignedURLSecret, cfg.GradeSync.SignedURLTTL)
	}

	metrics := service.NewMetricsService()
	exporter := export.NewCSVExporter()

	mappingRepo := repository.NewMappingRepository(db)
	stateRepo := repository.NewOAuthStateRepository(db)
	tokenRepo := repository.NewOAuthTokenRepository(db, sealer)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	markerRepo := repository.NewSyncMarkerRepository(redisClient, logger)

	enabled := cfg.LMS.Configured()
	if cfg.LMS.Enabled && !enabled {
		logger.Warn("lms integration enabled but client id, secret, api host or token url is missing")
	}

	auth := service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	oauth := service.NewOAuthService(stateRepo, tokenRepo, service.OAuthConfig{
		Enabled:      enabled,
		ClientID:     cfg.LMS.ClientID,
		ClientSecret: cfg.LMS.ClientSecret,
		RedirectURI:  cfg.LMS.RedirectURI,
		Site:         cfg.LMS.OAuthSite,
		AuthorizeURL: cfg.LMS.AuthorizeURL,
		TokenURL:     cfg.LMS.TokenURL,
		TokenTTL:     cfg.LMS.TokenTTL,
		HTTPTimeout:  cfg.LMS.HTTPTimeout,
	}, metrics, logger)

	mappings := service.NewMappingService(mappingRepo, validator.New(), logger)
	roster := service.NewRosterService(enrollmentRepo)

	gradeSync := service.NewGradeSyncService(mappingRepo, oauth, roster, service.GradeSyncConfig{
		Enabled:     enabled,
		APIHost:     cfg.LMS.APIHost,
		APIVersion:  cfg.LMS.APIVersion,
		ProductName: cfg.LMS.ProductName,
	}, metrics, logger)

	notification := service.NewNotificationService(userRepo, unitRepo, store, mailer.New(cfg.Mail, logger), signer, service.NotificationConfig{
		ProductName: cfg.LMS.ProductName,
		BaseURL:     cfg.GradeSync.PublicBaseURL + cfg.APIPrefix,
	}, logger)

	worker := service.NewGradeSyncWorker(gradeSync, exporter, store, notification, markerRepo, metrics, logger)

	queue := jobs.NewQueue(QueueName, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.GradeSync.WorkerConcurrency,
		BufferSize: cfg.GradeSync.QueueSize,
		Logger:     logger,
	})

	jobService := service.NewGradeSyncJobService(queue, markerRepo, mappingRepo, oauth, store, signer, metrics, logger, service.GradeSyncJobConfig{
		Enabled:   enabled,
		MarkerTTL: cfg.GradeSync.RunningMarkerTTL,
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Redis:        redisClient,
		Metrics:      metrics,
		Units:        unitRepo,
		Users:        userRepo,
		Store:        store,
		Signer:       signer,
		Exporter:     exporter,
		Auth:         auth,
		OAuth:        oauth,
		Mappings:     mappings,
		GradeSync:    gradeSync,
		Jobs:         jobService,
		Worker:       worker,
		Notification: notification,
		Queue:        queue,
	}, nil
}

// PingDB is a readiness probe for Postgres.
func (a *App) PingDB(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// PingRedis is a readiness probe for Redis; without a client there is nothing to check.
func (a *App) PingRedis(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx).Err()
}

// Close releases the connections opened by New.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func newSealer(cfg *config.Config, logger *zap.Logger) (*secrets.Sealer, error) {
	key := cfg.Secrets.TokenEncryptionKey
	if key == "" {
		if cfg.Env == config.EnvProduction {
			return nil, errors.New("TOKEN_ENCRYPTION_KEY is required in production")
		}
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, deriving the token key from JWT_SECRET")
		key = cfg.JWT.Secret
	}
	sealer, err := secrets.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("init token sealer: %w", err)
	}
	return sealer, nil
}
