package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"warehouse-stocks/models"
)

// PostgresStore persists the history in a single PostgreSQL table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS history_points (
			date           DATE PRIMARY KEY,
			report_date    DATE,
			registered_oz  DOUBLE PRECISION,
			eligible_oz    DOUBLE PRECISION,
			total_oz       DOUBLE PRECISION,
			prev_total_oz  DOUBLE PRECISION,
			change_oz      DOUBLE PRECISION,
			change_pct     DOUBLE PRECISION,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

const historyColumns = 8

// Save replaces the stored history with points in a single transaction, so
// readers see either the old or the new history.
func (ps *PostgresStore) Save(ctx context.Context, points []models.HistoryPoint) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history_points"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(points); i += batchSize {
		end := i + batchSize
		if end > len(points) {
			end = len(points)
		}
		query, args := insertBatchQuery(points[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatchQuery(batch []models.HistoryPoint) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*historyColumns)

	for idx, p := range batch {
		base := idx * historyColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs,
			p.Date, nullString(p.ReportDate),
			nullFloat(p.RegisteredQty), nullFloat(p.EligibleQty), nullFloat(p.TotalQty),
			nullFloat(p.PrevTotalQty), nullFloat(p.ChangeQty), nullFloat(p.ChangePct))
	}

	query := fmt.Sprintf(`
		INSERT INTO history_points (date, report_date, registered_oz, eligible_oz, total_oz, prev_total_oz, change_oz, change_pct)
		VALUES %s
		ON CONFLICT (date) DO UPDATE SET
			report_date   = EXCLUDED.report_date,
			registered_oz = EXCLUDED.registered_oz,
			eligible_oz   = EXCLUDED.eligible_oz,
			total_oz      = EXCLUDED.total_oz,
			prev_total_oz = EXCLUDED.prev_total_oz,
			change_oz     = EXCLUDED.change_oz,
			change_pct    = EXCLUDED.change_pct,
			updated_at    = NOW()
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// Load returns every stored point in ascending date order.
func (ps *PostgresStore) Load(ctx context.Context) ([]models.HistoryPoint, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT date, report_date, registered_oz, eligible_oz, total_oz, prev_total_oz, change_oz, change_pct
		FROM history_points
		ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch history: %w", err)
	}
	defer rows.Close()

	points := []models.HistoryPoint{}
	for rows.Next() {
		var (
			date                               time.Time
			reportDate                         sql.NullTime
			reg, eli, total, prev, change, pct sql.NullFloat64
		)
		if err := rows.Scan(&date, &reportDate, &reg, &eli, &total, &prev, &change, &pct); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		p := models.HistoryPoint{
			Date:          date.UTC().Format(models.DateLayout),
			RegisteredQty: floatPtr(reg),
			EligibleQty:   floatPtr(eli),
			TotalQty:      floatPtr(total),
			PrevTotalQty:  floatPtr(prev),
			ChangeQty:     floatPtr(change),
			ChangePct:     floatPtr(pct),
		}
		if reportDate.Valid {
			s := reportDate.Time.UTC().Format(models.DateLayout)
			p.ReportDate = &s
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
