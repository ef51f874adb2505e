package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var _ ArtifactStore = (*LocalStorage)(nil)

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./results"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the bytes through a temp file so readers never observe a partial artifact.
func (s *LocalStorage) Save(_ context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write artifact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod artifact file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace artifact file: %w", err)
	}
	return nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact file: %w", err)
	}
	return !info.IsDir(), nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact file: %w", err)
	}
	return nil
}

// Path exposes the underlying path for a key (useful for debugging and the CLI).
func (s *LocalStorage) Path(key string) string {
	path, err := s.resolve(key)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if key == "" || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}
