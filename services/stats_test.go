package services

import (
	"math"
	"testing"

	"warehouse-stocks/models"
)

func TestStatsConstantWindow(t *testing.T) {
	totals := make([]float64, 30)
	for i := range totals {
		totals[i] = 1_000_000
	}
	st := ComputeStats(TrailingWindow(dailyPoints(totals...), 30))

	if st.Points != 30 {
		t.Errorf("Points: got %d, want 30", st.Points)
	}
	if *st.Std != 0 || *st.Change != 0 || *st.ChangePct != 0 {
		t.Errorf("std/change/changePct: got %g/%g/%g, want 0/0/0", *st.Std, *st.Change, *st.ChangePct)
	}
	if *st.AvgDailyChange != 0 {
		t.Errorf("AvgDailyChange: got %g, want 0", *st.AvgDailyChange)
	}
	if trend := ClassifyTrend(st); trend.Direction != models.DirectionFlat || trend.Score != 0 {
		t.Errorf("trend: got %s/%.2f, want flat/0", trend.Direction, trend.Score)
	}
}

func TestStatsFormulas(t *testing.T) {
	st := ComputeStats(dailyPoints(100, 110, 90, 120))

	if *st.Min != 90 || *st.Max != 120 {
		t.Errorf("min/max: got %g/%g", *st.Min, *st.Max)
	}
	if *st.First != 100 || *st.Last != 120 || *st.Change != 20 {
		t.Errorf("first/last/change: got %g/%g/%g", *st.First, *st.Last, *st.Change)
	}
	if !approx(*st.ChangePct, 20) {
		t.Errorf("ChangePct: got %g, want 20", *st.ChangePct)
	}
	// mean 105, squared deviations 25+25+225+225 = 500, /3
	if !approx(*st.Std, math.Sqrt(500.0/3)) {
		t.Errorf("Std: got %g, want %g", *st.Std, math.Sqrt(500.0/3))
	}
	// diffs 10, -20, 30
	if !approx(*st.AvgDailyChange, 20.0/3) {
		t.Errorf("AvgDailyChange: got %g, want %g", *st.AvgDailyChange, 20.0/3)
	}
}

func TestStatsFirstLastFollowDateOrder(t *testing.T) {
	st := ComputeStats(dailyPoints(500, 100, 300))
	if *st.First != 500 || *st.Last != 300 {
		t.Errorf("first/last: got %g/%g, want 500/300", *st.First, *st.Last)
	}
	if *st.Change != -200 {
		t.Errorf("Change: got %g, want -200", *st.Change)
	}
}

func TestStatsSinglePoint(t *testing.T) {
	st := ComputeStats(dailyPoints(42))
	if *st.Std != 0 {
		t.Errorf("Std: got %g, want 0", *st.Std)
	}
	if st.AvgDailyChange != nil {
		t.Errorf("AvgDailyChange should be absent for one point")
	}
}

func TestStatsEmptyWindow(t *testing.T) {
	points := []models.HistoryPoint{{Date: "2024-01-01"}, {Date: "2024-01-02"}}
	st := ComputeStats(points)
	if st.Points != 0 || st.Min != nil || st.Max != nil || st.Std != nil || st.Change != nil || st.ChangePct != nil {
		t.Errorf("expected all-absent stats, got %+v", st)
	}
}

func TestStatsZeroFirst(t *testing.T) {
	st := ComputeStats(dailyPoints(0, 10))
	if st.ChangePct != nil {
		t.Errorf("ChangePct must be absent when first is zero, got %g", *st.ChangePct)
	}
}

func TestTrailingWindowSkipsUnusablePoints(t *testing.T) {
	points := dailyPoints(1, 2, 3, 4, 5)
	points[3].TotalQty = nil

	w := TrailingWindow(points, 3)
	if len(w) != 3 {
		t.Fatalf("window len: got %d, want 3", len(w))
	}
	if w[0].Date != "2024-01-02" || w[2].Date != "2024-01-05" {
		t.Errorf("window: got %s..%s, want 2024-01-02..2024-01-05", w[0].Date, w[2].Date)
	}
}
