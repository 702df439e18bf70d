package storage

import (
	"context"
	"sync"

	"warehouse-stocks/models"
)

// MemoryStore is a HistoryStore held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	points []models.HistoryPoint
	saves  int

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
}

// NewMemoryStore returns a store pre-populated with points.
func NewMemoryStore(points ...models.HistoryPoint) *MemoryStore {
	return &MemoryStore{points: append([]models.HistoryPoint(nil), points...)}
}

func (m *MemoryStore) Load(_ context.Context) ([]models.HistoryPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]models.HistoryPoint{}, m.points...), nil
}

func (m *MemoryStore) Save(_ context.Context, points []models.HistoryPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.points = append([]models.HistoryPoint{}, points...)
	m.saves++
	return nil
}

// Saves counts successful Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }
