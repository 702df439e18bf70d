package cme

import (
	"context"
	"time"

	"warehouse-stocks/config"
	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

// GridLoader produces the raw grid for a source URL.
type GridLoader interface {
	Load(ctx context.Context, url string) (models.Grid, error)
}

// Scraper runs one fetch → locate → extract pass over the warehouse report.
type Scraper struct {
	source  string
	loader  GridLoader
	locator *Locator
	logger  *utils.Logger
	now     func() time.Time
}

// New creates a Scraper wired from configuration. When BROWSER_WARMUP is set
// the loader is given a headless-browser cookie source.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	loader := NewLoader(cfg, logger)
	if cfg.BrowserWarmup {
		loader.WithCookieSource(NewBrowserSession(cfg, logger))
	}
	return NewWithLoader(cfg, loader, logger)
}

// NewWithLoader creates a Scraper around an arbitrary grid loader.
func NewWithLoader(cfg *config.Config, loader GridLoader, logger *utils.Logger) *Scraper {
	return &Scraper{
		source:  cfg.SourceURL,
		loader:  loader,
		locator: NewLocator(cfg.ColumnRules, cfg.HeaderScanRows, cfg.DateScanRows),
		logger:  logger,
		now:     time.Now,
	}
}

// Source is the URL the scraper reads.
func (s *Scraper) Source() string { return s.source }

// Scrape performs exactly one network read and one parse pass.
func (s *Scraper) Scrape(ctx context.Context) (*models.Report, error) {
	grid, err := s.loader.Load(ctx, s.source)
	if err != nil {
		return nil, err
	}
	fetchedAt := s.now().UTC()

	report, err := s.Parse(grid)
	if err != nil {
		return nil, err
	}
	report.FetchedAt = fetchedAt
	return report, nil
}

// Parse locates and extracts the report from an already decoded grid.
func (s *Scraper) Parse(grid models.Grid) (*models.Report, error) {
	schema, err := s.locator.Locate(grid)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[cme] Header row %d, columns %+v", schema.HeaderRow, schema.Columns)
	if schema.ReportDate == nil && schema.ActivityDate == nil {
		s.logger.Warn("[cme] No report or activity date found in first rows")
	}

	ext, err := Extract(grid, schema)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[cme] Extracted %d depository rows", len(ext.Records))

	return &models.Report{
		Source:       s.source,
		ReportDate:   schema.ReportDate,
		ActivityDate: schema.ActivityDate,
		Records:      ext.Records,
		Totals:       ext.Totals,
	}, nil
}
