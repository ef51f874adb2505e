package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/noah-isme/sma-lms-gradesync/api/swagger"
	"github.com/noah-isme/sma-lms-gradesync/internal/app"
	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
	"github.com/noah-isme/sma-lms-gradesync/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title LMS Grade Sync API
// @version 1.0.0
// @description Links units to LMS org units and transfers unit grades into the LMS gradebook.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init application", "error", err)
	}
	defer a.Close() //nolint:errcheck

	a.Queue.Start(ctx)
	defer a.Queue.Stop()
	a.OAuth.StartCleanup(ctx, cfg.GradeSync.CleanupInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           a.NewRouter(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "lms_enabled", cfg.LMS.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
}
