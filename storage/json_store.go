package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

// JSONFileStore keeps the history as a pretty-printed JSON array on disk.
type JSONFileStore struct {
	path   string
	logger *utils.Logger
}

// NewJSONFileStore returns a store backed by the file at path. The file and
// its directory are created on first Save.
func NewJSONFileStore(path string, logger *utils.Logger) *JSONFileStore {
	return &JSONFileStore{path: path, logger: logger}
}

// Load reads the stored history. A missing, unreadable or malformed file is
// not an error: the history is derived data and restarts empty.
func (s *JSONFileStore) Load(_ context.Context) ([]models.HistoryPoint, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("[history] Cannot read %s, starting empty: %v", s.path, err)
		}
		return []models.HistoryPoint{}, nil
	}

	var points []models.HistoryPoint
	if err := json.Unmarshal(b, &points); err != nil {
		s.logger.Warn("[history] Malformed %s, starting empty: %v", s.path, err)
		return []models.HistoryPoint{}, nil
	}
	if points == nil {
		points = []models.HistoryPoint{}
	}
	return points, nil
}

// Save writes points to a temporary file next to the target and renames it
// into place, so a crash or a concurrent writer never leaves a partial file.
func (s *JSONFileStore) Save(_ context.Context, points []models.HistoryPoint) error {
	if points == nil {
		points = []models.HistoryPoint{}
	}
	b, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("history: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("history: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("history: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONFileStore) Close() error { return nil }
