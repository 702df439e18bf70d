package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"

	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

// Thresholds for the advisory heuristics. None of them is predictive and none
// may fail an ingestion run.
const (
	flatTrendPct       = 0.15
	fullTrendPct       = 2.5
	lowRegisteredPct   = 25.0
	fullOutflowPct     = 6.0
	pressureRegWeight  = 0.55
	pressureFlowWeight = 0.45
	dailyAlertPct      = 1.0
	monthlyAlertPct    = 3.0
	registeredAlertPct = 15.0
	pressureAlertLevel = 0.75
	maxAlerts          = 4
	trendWindow        = 30
	shortWindow        = 7
)

// ClassifyTrend labels the move between the first and last point of a
// 30-point window: below 0.15% it is flat, otherwise up or down, with a
// 0..1 score saturating at 2.5%.
func ClassifyTrend(stats models.TrailingStats) models.Trend {
	if stats.Points < 2 || stats.First == nil || stats.Last == nil {
		return models.Trend{Direction: models.DirectionFlat, Label: "insufficient history"}
	}

	var pct float64
	if *stats.First != 0 {
		pct = (*stats.Last - *stats.First) / *stats.First * 100
	}

	dir := models.DirectionFlat
	if math.Abs(pct) >= flatTrendPct {
		dir = lo.Ternary(pct > 0, models.DirectionUp, models.DirectionDown)
	}
	return models.Trend{
		Direction: dir,
		Score:     lo.Clamp(math.Abs(pct)/fullTrendPct, 0, 1),
		ChangePct: lo.ToPtr(pct),
		Label:     fmt.Sprintf("%s%.2f%% over %d days", sign(pct), pct, trendWindow),
	}
}

// Pressure combines a low registered share with a 30-day outflow into a 0..1
// score. It is absent when the share is missing or either window endpoint is
// missing or zero.
func Pressure(registeredSharePct *float64, stats30 models.TrailingStats) *float64 {
	if registeredSharePct == nil || stats30.First == nil || stats30.Last == nil ||
		*stats30.First == 0 || *stats30.Last == 0 {
		return nil
	}
	outflowPct := (*stats30.First - *stats30.Last) / *stats30.First * 100

	lowRegistered := lo.Clamp((lowRegisteredPct-*registeredSharePct)/lowRegisteredPct, 0, 1)
	outflow := lo.Clamp(outflowPct/fullOutflowPct, 0, 1)
	return lo.ToPtr(lo.Clamp(pressureRegWeight*lowRegistered+pressureFlowWeight*outflow, 0, 1))
}

// RegisteredEligibleRatio is registered over eligible, absent when eligible
// is missing or zero.
func RegisteredEligibleRatio(s *models.Snapshot) *float64 {
	if s == nil || s.RegisteredQty == nil || s.EligibleQty == nil || *s.EligibleQty == 0 {
		return nil
	}
	return lo.ToPtr(*s.RegisteredQty / *s.EligibleQty)
}

// Alerts evaluates the simple display rules, at most four, in rule order.
func Alerts(s *models.Snapshot, stats30 models.TrailingStats, pressure *float64) []models.Alert {
	alerts := []models.Alert{}
	if s == nil || !s.OK {
		return alerts
	}

	if s.ChangePct != nil && math.Abs(*s.ChangePct) >= dailyAlertPct {
		alerts = append(alerts, models.Alert{
			Kind:        directionKind(*s.ChangePct),
			Title:       "Unusual daily change",
			Description: fmt.Sprintf("%s%.2f%% versus the previous day", sign(*s.ChangePct), *s.ChangePct),
		})
	}
	if stats30.ChangePct != nil && math.Abs(*stats30.ChangePct) >= monthlyAlertPct {
		alerts = append(alerts, models.Alert{
			Kind:        directionKind(*stats30.ChangePct),
			Title:       "Strong 30-day move",
			Description: fmt.Sprintf("%s%.2f%% over 30 days", sign(*stats30.ChangePct), *stats30.ChangePct),
		})
	}
	if s.RegisteredSharePct != nil && *s.RegisteredSharePct < registeredAlertPct {
		alerts = append(alerts, models.Alert{
			Kind:        models.AlertWarn,
			Title:       "Low registered share",
			Description: fmt.Sprintf("Only %.2f%% of the total is registered", *s.RegisteredSharePct),
		})
	}
	if pressure != nil && *pressure >= pressureAlertLevel {
		alerts = append(alerts, models.Alert{
			Kind:        models.AlertWarn,
			Title:       "High internal pressure index",
			Description: "Low registered share combined with a 30-day outflow (internal indicator, not a forecast).",
		})
	}

	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}

func directionKind(v float64) models.AlertKind {
	return lo.Ternary(v > 0, models.AlertUp, models.AlertDown)
}

func sign(v float64) string {
	if v > 0 {
		return "+"
	}
	return ""
}

// InsightService assembles the InsightReport and renders it to the console.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate derives trailing statistics and heuristics for snapshot from a
// date-ascending history. The snapshot may be nil when only history is known.
func (s *InsightService) Generate(snapshot *models.Snapshot, history []models.HistoryPoint) *models.InsightReport {
	stats30 := ComputeStats(TrailingWindow(history, trendWindow))
	report := &models.InsightReport{
		Snapshot:      snapshot,
		HistoryPoints: len(UsablePoints(history)),
		Stats7:        ComputeStats(TrailingWindow(history, shortWindow)),
		Stats30:       stats30,
		Trend:         ClassifyTrend(stats30),
		RegEligRatio:  RegisteredEligibleRatio(snapshot),
	}
	if snapshot != nil {
		report.Pressure = Pressure(snapshot.RegisteredSharePct, stats30)
	}
	report.Alerts = Alerts(snapshot, stats30, report.Pressure)

	s.logger.Debug("[insights] %d history points, trend %s, %d alerts",
		report.HistoryPoints, report.Trend.Direction, len(report.Alerts))
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📦 COMEX SILVER WAREHOUSE STOCKS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	snap := r.Snapshot
	if snap != nil {
		fmt.Printf("\033[1;33m  Core figures\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Activity date : %s   Report date: %s\n", dateOrDash(snap.ActivityDate), dateOrDash(snap.ReportDate))
		fmt.Printf("  Total         : \033[1m%s oz\033[0m\n", fmtOz(snap.TotalQty))
		fmt.Printf("  Registered    : %s oz (%s)\n", fmtOz(snap.RegisteredQty), fmtPct(snap.RegisteredSharePct, 2))
		fmt.Printf("  Eligible      : %s oz (%s)\n", fmtOz(snap.EligibleQty), fmtPct(snap.EligibleSharePct, 2))
		fmt.Printf("  Daily change  : %s oz (%s)\n", fmtSignedOz(snap.ChangeQty), fmtPct(snap.ChangePct, 3))
		fmt.Printf("  Reg / Elig    : %s\n", fmtRatio(r.RegEligRatio))
		fmt.Println()

		fmt.Printf("\033[1;33m  Top depositories by total\033[0m\n")
		fmt.Printf("  %s\n", thin)
		if len(snap.TopByTotal) == 0 {
			fmt.Printf("  No depository rows\n")
		}
		for i, d := range snap.TopByTotal {
			fmt.Printf("  \033[1m%d.\033[0m %-34s %16s oz\n", i+1, truncate(d.Name, 32), fmtOz(d.TotalQty))
		}
		fmt.Println()

		fmt.Printf("\033[1;33m  Biggest movers today\033[0m\n")
		fmt.Printf("  %s\n", thin)
		if len(snap.Movers) == 0 {
			fmt.Printf("  No changes reported\n")
		}
		for i, d := range snap.Movers {
			color := "32"
			if d.ChangeQty != nil && *d.ChangeQty < 0 {
				color = "31"
			}
			fmt.Printf("  \033[1m%d.\033[0m %-34s \033[1;%sm%16s oz\033[0m\n", i+1, truncate(d.Name, 32), color, fmtSignedOz(d.ChangeQty))
		}
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  History (%d points)\033[0m\n", r.HistoryPoints)
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  30-day trend       : %s [%s, score %.2f]\n", r.Trend.Label, r.Trend.Direction, r.Trend.Score)
	fmt.Printf("  30-day change      : %s oz (%s)\n", fmtSignedOz(r.Stats30.Change), fmtPct(r.Stats30.ChangePct, 2))
	fmt.Printf("  30-day range       : %s → %s\n", fmtShort(r.Stats30.Min), fmtShort(r.Stats30.Max))
	fmt.Printf("  30-day std dev     : %s oz\n", fmtShort(r.Stats30.Std))
	fmt.Printf("  7-day avg change   : %s oz/day\n", fmtSignedShort(r.Stats7.AvgDailyChange))
	if r.Pressure != nil {
		fmt.Printf("  Pressure index     : %.2f (advisory)\n", *r.Pressure)
	}
	fmt.Println()

	if len(r.Alerts) > 0 {
		fmt.Printf("\033[1;33m  Alerts\033[0m\n")
		fmt.Printf("  %s\n", thin)
		for _, a := range r.Alerts {
			fmt.Printf("  [%s] \033[1m%s\033[0m — %s\n", a.Kind, a.Title, a.Description)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func dateOrDash(d *string) string {
	if d == nil {
		return "—"
	}
	return *d
}

func fmtOz(v *float64) string {
	if v == nil {
		return "—"
	}
	return groupThousands(math.Round(*v))
}

func fmtSignedOz(v *float64) string {
	if v == nil {
		return "—"
	}
	return sign(*v) + groupThousands(math.Round(*v))
}

func fmtPct(v *float64, digits int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%s%.*f%%", sign(*v), digits, *v)
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.3f", *v)
}

func fmtShort(v *float64) string {
	if v == nil {
		return "—"
	}
	n := *v
	abs := math.Abs(n)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", n/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

func fmtSignedShort(v *float64) string {
	if v == nil {
		return "—"
	}
	return sign(*v) + fmtShort(v)
}

func groupThousands(n float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(n))
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if n < 0 {
		return "-" + b.String()
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
