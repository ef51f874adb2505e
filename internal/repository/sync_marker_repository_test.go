package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMarkerRepositoryLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close() //nolint:errcheck

	repo := NewSyncMarkerRepository(client, nil)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "unit-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Mark(ctx, "unit-1", "job-1", time.Minute))
	ok, err = repo.Exists(ctx, "unit-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("gradesync:running:unit-1"))

	require.NoError(t, repo.Clear(ctx, "unit-1"))
	ok, err = repo.Exists(ctx, "unit-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncMarkerRepositoryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close() //nolint:errcheck

	repo := NewSyncMarkerRepository(client, nil)
	ctx := context.Background()
	require.NoError(t, repo.Mark(ctx, "unit-1", "job-1", time.Minute))

	mr.FastForward(2 * time.Minute)
	ok, err := repo.Exists(ctx, "unit-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncMarkerRepositoryNilClient(t *testing.T) {
	repo := NewSyncMarkerRepository(nil, nil)
	ctx := context.Background()
	require.NoError(t, repo.Mark(ctx, "unit-1", "job-1", time.Minute))
	ok, err := repo.Exists(ctx, "unit-1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, repo.Clear(ctx, "unit-1"))
}
