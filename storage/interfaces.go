package storage

import (
	"context"

	"warehouse-stocks/models"
)

// HistoryStore is the interface any durable history backend must satisfy.
// Save replaces the whole stored history atomically: readers see either the
// previous or the new sequence, never a mix.
type HistoryStore interface {
	Load(ctx context.Context) ([]models.HistoryPoint, error)
	Save(ctx context.Context, points []models.HistoryPoint) error
	Close() error
}

// HistoryExporter writes history points in a flat export format.
type HistoryExporter interface {
	WriteHistory(points []models.HistoryPoint) error
	Close() error
}
