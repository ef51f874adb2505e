package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	puts    []string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b.puts = append(b.puts, r.URL.Path)
		b.objects[r.URL.Path] = "stored"
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := b.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := b.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, body)
	case http.MethodDelete:
		delete(b.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T) (*S3Storage, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]string{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	store, err := NewS3Storage(config.S3Config{
		Bucket:          "results",
		Region:          "us-east-1",
		EndpointURL:     srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Prefix:          "gradesync/",
		ForcePathStyle:  true,
	})
	require.NoError(t, err)
	return store, bucket
}

func TestS3StorageRequiresBucket(t *testing.T) {
	_, err := NewS3Storage(config.S3Config{})
	require.Error(t, err)
}

func TestS3StorageSaveUsesPrefixedKey(t *testing.T) {
	store, bucket := newTestS3(t)

	require.NoError(t, store.Save(context.Background(), "units/u-1/result.csv", []byte("Status,Message\n")))
	require.Equal(t, []string{"/results/gradesync/units/u-1/result.csv"}, bucket.puts)

	exists, err := store.Exists(context.Background(), "units/u-1/result.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestS3StorageMissingObject(t *testing.T) {
	store, _ := newTestS3(t)

	exists, err := store.Exists(context.Background(), "units/u-2/result.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Open(context.Background(), "units/u-2/result.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewArtifactStoreDrivers(t *testing.T) {
	store, err := NewArtifactStore(config.GradeSyncConfig{StorageDriver: config.StorageDriverLocal, StorageDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = NewArtifactStore(config.GradeSyncConfig{StorageDriver: "ftp"})
	assert.Error(t, err)
}
