package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const syncMarkerPrefix = "gradesync:running:"

// SyncMarkerRepository records running grade transfers in Redis so every API replica sees them.
// A nil client turns every call into a no-op.
type SyncMarkerRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSyncMarkerRepository constructs the repository.
func NewSyncMarkerRepository(client *redis.Client, logger *zap.Logger) *SyncMarkerRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncMarkerRepository{client: client, logger: logger}
}

// Mark flags the unit as running until Clear or ttl.
func (r *SyncMarkerRepository) Mark(ctx context.Context, unitID, jobID string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, syncMarkerPrefix+unitID, jobID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", syncMarkerPrefix+unitID, err)
	}
	return nil
}

// Clear removes the unit flag.
func (r *SyncMarkerRepository) Clear(ctx context.Context, unitID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, syncMarkerPrefix+unitID).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", syncMarkerPrefix+unitID, err)
	}
	return nil
}

// Exists reports whether a run is flagged for the unit.
func (r *SyncMarkerRepository) Exists(ctx context.Context, unitID string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, syncMarkerPrefix+unitID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", syncMarkerPrefix+unitID, err)
	}
	return n > 0, nil
}
