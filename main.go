package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse-stocks/config"
	"warehouse-stocks/scraper/cme"
	"warehouse-stocks/server"
	"warehouse-stocks/services"
	"warehouse-stocks/storage"
	"warehouse-stocks/utils"
)

const usage = `usage: warehouse-stocks [snapshot|update-history|export-csv|serve]

  snapshot        fetch the report and print the current snapshot with history insights (default)
  update-history  fetch the report and upsert today's point into the history store
  export-csv      write the stored history to CSV_OUTPUT_PATH
  serve           expose /api/snapshot, /api/history, /api/history.csv and /api/insights on LISTEN_ADDR

ENV: see config/config.go; a .env file in the working directory is loaded first`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches the subcommand and returns the process exit code, so that
// deferred cleanup runs before main exits.
func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	cmd := "snapshot"
	if len(args) > 0 {
		cmd = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd {
	case "snapshot":
		runErr = runSnapshot(ctx, cfg, logger)
	case "update-history":
		runErr = runUpdateHistory(ctx, cfg, logger)
	case "export-csv":
		runErr = runExportCSV(ctx, cfg, logger)
	case "serve":
		runErr = runServe(ctx, cfg, logger)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return 0
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	if runErr != nil {
		logger.Error("%s failed: %v", cmd, runErr)
		return 1
	}
	return 0
}

func openHistoryStore(cfg *config.Config, logger *utils.Logger) (storage.HistoryStore, error) {
	switch cfg.HistoryBackend {
	case "postgres":
		return storage.NewPostgresStore(cfg.DSN())
	case "file", "":
		return storage.NewJSONFileStore(cfg.HistoryPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown HISTORY_BACKEND %q", cfg.HistoryBackend)
	}
}

func newIngestor(cfg *config.Config, logger *utils.Logger) (*services.Ingestor, storage.HistoryStore, error) {
	store, err := openHistoryStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return services.NewIngestor(cme.New(cfg, logger), store, cfg.HistoryLimit, logger), store, nil
}

func runSnapshot(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	ingestor, store, err := newIngestor(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("=== Warehouse stocks snapshot — source: %s ===", cfg.SourceURL)
	snap, err := ingestor.Live(ctx)
	if err != nil {
		return err
	}

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(snap, ingestor.History(ctx)))
	return nil
}

func runUpdateHistory(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	ingestor, store, err := newIngestor(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ingestor.WithRetry(&utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		Logger:      logger,
		Retryable: func(err error) bool {
			var fetchErr *cme.FetchError
			return errors.As(err, &fetchErr)
		},
	})

	point, err := ingestor.UpdateHistory(ctx)
	if err != nil {
		return err
	}
	logger.Info("Updated history: date=%s total=%s", point.Date, formatOptional(point.TotalQty))
	return nil
}

func runExportCSV(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	store, err := openHistoryStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	points, err := store.Load(ctx)
	if err != nil {
		return err
	}
	points = storage.NewHistory(points, cfg.HistoryLimit).Points()

	w, err := newExporter(cfg)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteHistory(points); err != nil {
		return err
	}
	logger.Info("Exported %d history points to %s", len(points), cfg.CSVOutputPath)
	return nil
}

func newExporter(cfg *config.Config) (storage.HistoryExporter, error) {
	w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	ingestor, store, err := newIngestor(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(ingestor, services.NewInsightService(logger), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}
