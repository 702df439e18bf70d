package services

import (
	"math"

	"github.com/samber/lo"

	"warehouse-stocks/models"
)

// UsablePoints returns the points that carry a total, in the given order.
func UsablePoints(points []models.HistoryPoint) []models.HistoryPoint {
	return lo.Filter(points, func(p models.HistoryPoint, _ int) bool {
		return p.TotalQty != nil && !math.IsNaN(*p.TotalQty) && !math.IsInf(*p.TotalQty, 0)
	})
}

// TrailingWindow returns the last n usable points of a date-ascending history.
func TrailingWindow(points []models.HistoryPoint, n int) []models.HistoryPoint {
	usable := UsablePoints(points)
	if n < len(usable) {
		usable = usable[len(usable)-n:]
	}
	return usable
}

// ComputeStats summarises totalOz over window. first and last follow date
// order, std is the sample standard deviation (0 for one point) and
// avgDailyChange is the mean of consecutive differences (absent below two
// points). An empty window yields an all-absent result.
func ComputeStats(window []models.HistoryPoint) models.TrailingStats {
	p := UsablePoints(window)
	if len(p) == 0 {
		return models.TrailingStats{}
	}

	ys := lo.Map(p, func(x models.HistoryPoint, _ int) float64 { return *x.TotalQty })
	first, last := ys[0], ys[len(ys)-1]
	change := last - first

	st := models.TrailingStats{
		Points: len(ys),
		Min:    lo.ToPtr(lo.Min(ys)),
		Max:    lo.ToPtr(lo.Max(ys)),
		First:  lo.ToPtr(first),
		Last:   lo.ToPtr(last),
		Change: lo.ToPtr(change),
		Std:    lo.ToPtr(sampleStddev(ys)),
	}
	if first != 0 {
		st.ChangePct = lo.ToPtr(change / first * 100)
	}
	if len(ys) > 1 {
		var sum float64
		for i := 1; i < len(ys); i++ {
			sum += ys[i] - ys[i-1]
		}
		st.AvgDailyChange = lo.ToPtr(sum / float64(len(ys)-1))
	}
	return st
}

func sampleStddev(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	mean := lo.Sum(ys) / float64(len(ys))
	var sq float64
	for _, y := range ys {
		sq += (y - mean) * (y - mean)
	}
	return math.Sqrt(sq / float64(len(ys)-1))
}
