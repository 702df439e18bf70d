package storage

import (
	"fmt"
	"time"

	"warehouse-stocks/models"
)

func f(v float64) *float64 { return &v }

func point(date string, total float64) models.HistoryPoint {
	return models.HistoryPoint{Date: date, TotalQty: f(total)}
}

// days builds n consecutive daily points starting at 2024-01-01 with totals 1..n.
func days(n int) []models.HistoryPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.HistoryPoint, n)
	for i := range out {
		out[i] = point(start.AddDate(0, 0, i).Format(models.DateLayout), float64(i+1))
	}
	return out
}

func dates(points []models.HistoryPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Date
	}
	return out
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%g", *v)
}
