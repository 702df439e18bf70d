package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"warehouse-stocks/models"
)

// CSVHeader is the column order of the history export.
var CSVHeader = []string{"date", "totalOz", "registeredOz", "eligibleOz", "changeOz", "changePct"}

// CSVWriter exports history points to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &CSVWriter{file: f}, nil
}

// WriteHistory writes the header and one row per point.
func (c *CSVWriter) WriteHistory(points []models.HistoryPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteHistoryCSV(c.file, points)
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}

// WriteHistoryCSV writes points as CSV to w. Absent values are empty cells.
func WriteHistoryCSV(w io.Writer, points []models.HistoryPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.Date,
			formatFloat(p.TotalQty),
			formatFloat(p.RegisteredQty),
			formatFloat(p.EligibleQty),
			formatFloat(p.ChangeQty),
			formatFloat(p.ChangePct),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
