package services

import (
	"fmt"
	"math"
	"time"

	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

func f(v float64) *float64 { return &v }

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func rec(name string, total, change *float64) models.WarehouseRecord {
	return models.WarehouseRecord{Name: name, TotalQty: total, ChangeQty: change}
}

// dailyPoints builds consecutive daily points starting at 2024-01-01.
func dailyPoints(totals ...float64) []models.HistoryPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.HistoryPoint, len(totals))
	for i, v := range totals {
		out[i] = models.HistoryPoint{Date: start.AddDate(0, 0, i).Format(models.DateLayout), TotalQty: f(v)}
	}
	return out
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%g", *v)
}
