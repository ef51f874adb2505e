package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
)

// ErrNotFound is returned when an artifact key has never been written.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore persists job artifacts under slash separated keys. Save overwrites.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// NewArtifactStore picks the backend named by cfg.StorageDriver.
func NewArtifactStore(cfg config.GradeSyncConfig) (ArtifactStore, error) {
	switch cfg.StorageDriver {
	case "", config.StorageDriverLocal:
		return NewLocalStorage(cfg.StorageDir)
	case config.StorageDriverS3:
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
