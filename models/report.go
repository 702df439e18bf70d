package models

import (
	"strconv"
	"strings"
	"time"
)

// CellKind tells how a raw spreadsheet cell was stored in the source.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one untyped value from the source grid. The loader never coerces
// it; interpretation is left to the extractor.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell builds a cell from raw text. Blank text becomes an empty cell.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

// String renders the cell the way it reads in the sheet.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Normalized returns the upper-cased, trimmed text used for header matching.
func (c Cell) Normalized() string {
	return strings.ToUpper(strings.TrimSpace(c.String()))
}

// Row is one source row; Grid is the whole first sheet in source order.
type Row []Cell

type Grid []Row

// At returns the cell at column i, or an empty cell past the row's end.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// WarehouseRecord holds one depository's holdings on the report date.
// Quantities are troy ounces; nil means the cell was blank or unparsable.
type WarehouseRecord struct {
	Name          string   `json:"depository"`
	RegisteredQty *float64 `json:"registeredOz"`
	EligibleQty   *float64 `json:"eligibleOz"`
	TotalQty      *float64 `json:"totalOz"`
	ChangeQty     *float64 `json:"changeOz"`
}

// HasData reports whether at least one holding figure is present.
func (r WarehouseRecord) HasData() bool {
	return r.RegisteredQty != nil || r.EligibleQty != nil || r.TotalQty != nil
}

// TotalsRow is the grand-total row of the report.
type TotalsRow struct {
	WarehouseRecord
	PrevTotalQty *float64
}

// Snapshot is the derived market state for one report, as served to clients.
type Snapshot struct {
	OK                 bool              `json:"ok"`
	Source             string            `json:"source"`
	ActivityDate       *string           `json:"activityDate"`
	ReportDate         *string           `json:"reportDate"`
	RegisteredQty      *float64          `json:"registeredOz"`
	EligibleQty        *float64          `json:"eligibleOz"`
	TotalQty           *float64          `json:"totalOz"`
	PrevTotalQty       *float64          `json:"prevTotalOz"`
	ChangeQty          *float64          `json:"changeOz"`
	ChangePct          *float64          `json:"changePct"`
	RegisteredSharePct *float64          `json:"registeredSharePct"`
	EligibleSharePct   *float64          `json:"eligibleSharePct"`
	TopByTotal         []WarehouseRecord `json:"topByTotal"`
	Movers             []WarehouseRecord `json:"movers"`
	FetchedAt          time.Time         `json:"fetchedAt"`
}

// ErrorResponse is the payload returned instead of a Snapshot on failure.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HistoryPoint is the persisted projection of one day's snapshot, keyed by Date.
type HistoryPoint struct {
	Date          string   `json:"date"`
	ReportDate    *string  `json:"reportDate"`
	RegisteredQty *float64 `json:"registeredOz"`
	EligibleQty   *float64 `json:"eligibleOz"`
	TotalQty      *float64 `json:"totalOz"`
	PrevTotalQty  *float64 `json:"prevTotalOz"`
	ChangeQty     *float64 `json:"changeOz"`
	ChangePct     *float64 `json:"changePct"`
}

// PointFromSnapshot projects s onto a history point. The key is the activity
// date, falling back to the report date and then to today's UTC date.
func PointFromSnapshot(s *Snapshot, now time.Time) HistoryPoint {
	date := now.UTC().Format(DateLayout)
	switch {
	case s.ActivityDate != nil:
		date = *s.ActivityDate
	case s.ReportDate != nil:
		date = *s.ReportDate
	}
	return HistoryPoint{
		Date:          date,
		ReportDate:    s.ReportDate,
		RegisteredQty: s.RegisteredQty,
		EligibleQty:   s.EligibleQty,
		TotalQty:      s.TotalQty,
		PrevTotalQty:  s.PrevTotalQty,
		ChangeQty:     s.ChangeQty,
		ChangePct:     s.ChangePct,
	}
}

// DateLayout is the calendar-day format used for every date in the system.
const DateLayout = "2006-01-02"

// TrailingStats summarises totalOz over a trailing window of history.
type TrailingStats struct {
	Points         int      `json:"points"`
	Min            *float64 `json:"min"`
	Max            *float64 `json:"max"`
	First          *float64 `json:"first"`
	Last           *float64 `json:"last"`
	Change         *float64 `json:"change"`
	ChangePct      *float64 `json:"changePct"`
	Std            *float64 `json:"std"`
	AvgDailyChange *float64 `json:"avgDailyChange"`
}

// Direction of the 30-day trend.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend is an advisory label over the 30-day window. It is not a forecast.
type Trend struct {
	Direction Direction `json:"direction"`
	Score     float64   `json:"score"`
	ChangePct *float64  `json:"changePct"`
	Label     string    `json:"label"`
}

// AlertKind classifies an Alert for display.
type AlertKind string

const (
	AlertUp   AlertKind = "up"
	AlertDown AlertKind = "down"
	AlertWarn AlertKind = "warn"
)

// Alert is a simple rule hit worth surfacing next to the numbers.
type Alert struct {
	Kind        AlertKind `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"desc"`
}

// InsightReport bundles the live snapshot with history-derived analytics.
type InsightReport struct {
	Snapshot      *Snapshot     `json:"snapshot"`
	HistoryPoints int           `json:"historyPoints"`
	Stats7        TrailingStats `json:"stats7"`
	Stats30       TrailingStats `json:"stats30"`
	Trend         Trend         `json:"trend"`
	Pressure      *float64      `json:"pressure"`
	RegEligRatio  *float64      `json:"registeredEligibleRatio"`
	Alerts        []Alert       `json:"alerts"`

	// LiveError is set when the live report could not be read and the
	// report was built from stored history alone.
	LiveError string `json:"liveError,omitempty"`
}

// Report is the typed result of one extraction pass over the source sheet.
type Report struct {
	Source       string
	FetchedAt    time.Time
	ReportDate   *string
	ActivityDate *string
	Records      []WarehouseRecord
	Totals       TotalsRow
}
