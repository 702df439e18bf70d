package services

import (
	"context"
	"fmt"
	"time"

	"warehouse-stocks/models"
	"warehouse-stocks/storage"
	"warehouse-stocks/utils"
)

// ReportSource performs one extraction pass over the published report.
type ReportSource interface {
	Scrape(ctx context.Context) (*models.Report, error)
}

// Ingestor runs the live-snapshot and history-update paths.
type Ingestor struct {
	source  ReportSource
	store   storage.HistoryStore
	deriver *Deriver
	retry   *utils.RetryConfig
	limit   int
	logger  *utils.Logger
	now     func() time.Time
}

// NewIngestor wires a report source to a history store. limit caps the
// number of retained history points.
func NewIngestor(source ReportSource, store storage.HistoryStore, limit int, logger *utils.Logger) *Ingestor {
	return &Ingestor{
		source:  source,
		store:   store,
		deriver: NewDeriver(logger),
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// WithRetry makes the history path retry the scrape according to r.
func (in *Ingestor) WithRetry(r *utils.RetryConfig) *Ingestor {
	in.retry = r
	return in
}

// Live fetches and derives the current snapshot.
func (in *Ingestor) Live(ctx context.Context) (*models.Snapshot, error) {
	report, err := in.source.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	return in.deriver.Derive(report), nil
}

// UpdateHistory derives today's snapshot and merges it into the store. When
// extraction fails the store is neither read nor written.
func (in *Ingestor) UpdateHistory(ctx context.Context) (*models.HistoryPoint, error) {
	var snap *models.Snapshot
	scrape := func(ctx context.Context) error {
		var err error
		snap, err = in.Live(ctx)
		return err
	}

	var err error
	if in.retry != nil {
		err = in.retry.Do(ctx, "scrape-report", scrape)
	} else {
		err = scrape(ctx)
	}
	if err != nil {
		return nil, err
	}

	point := models.PointFromSnapshot(snap, in.now())
	history := storage.NewHistory(in.History(ctx), in.limit)
	before := history.Len()
	history.Upsert(point)

	if err := in.store.Save(ctx, history.Points()); err != nil {
		return nil, fmt.Errorf("history: save: %w", err)
	}
	in.logger.Info("[ingest] Stored point for %s (%d → %d points)", point.Date, before, history.Len())
	return &point, nil
}

// History loads the stored history. Load failures degrade to an empty
// history because it is derived data and can be rebuilt.
func (in *Ingestor) History(ctx context.Context) []models.HistoryPoint {
	points, err := in.store.Load(ctx)
	if err != nil {
		in.logger.Warn("[ingest] Could not load history, starting empty: %v", err)
		return []models.HistoryPoint{}
	}
	return storage.NewHistory(points, in.limit).Points()
}
