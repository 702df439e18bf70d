package cme

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"warehouse-stocks/config"
	"warehouse-stocks/models"
)

// NotFound marks a column the header row does not carry.
const NotFound = -1

// depositoryColumn is fixed by the report format.
const depositoryColumn = 0

var (
	reportDateRegexp   = regexp.MustCompile(`REPORT\s+DATE\s*:\s*(\d{1,2}/\d{1,2}/\d{4})`)
	activityDateRegexp = regexp.MustCompile(`ACTIVITY\s+DATE\s*:\s*(\d{1,2}/\d{1,2}/\d{4})`)
	mdyRegexp          = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// Columns holds resolved column indices, NotFound where absent.
type Columns struct {
	Depository int
	Registered int
	Eligible   int
	Total      int
	PrevTotal  int
	Change     int
}

// Schema is where the data lives inside the grid.
type Schema struct {
	HeaderRow    int
	Columns      Columns
	ReportDate   *string
	ActivityDate *string
}

// Locator finds the header row, its columns and the report dates.
type Locator struct {
	rules          []config.ColumnRule
	headerScanRows int
	dateScanRows   int
}

// NewLocator creates a Locator over the given column rules and scan windows.
func NewLocator(rules []config.ColumnRule, headerScanRows, dateScanRows int) *Locator {
	return &Locator{
		rules:          rules,
		headerScanRows: headerScanRows,
		dateScanRows:   dateScanRows,
	}
}

// Locate scans grid and returns its Schema, or *SchemaNotFoundError when no
// header row appears within the scan window. Missing dates are not an error.
func (l *Locator) Locate(grid models.Grid) (*Schema, error) {
	idx, ok := FindHeaderRow(grid, l.rules, l.headerScanRows)
	if !ok {
		return nil, &SchemaNotFoundError{ScannedRows: min(len(grid), l.headerScanRows)}
	}
	report, activity := FindDates(grid, l.dateScanRows)
	return &Schema{
		HeaderRow:    idx,
		Columns:      ResolveColumns(grid[idx], l.rules),
		ReportDate:   report,
		ActivityDate: activity,
	}, nil
}

// FindHeaderRow returns the first row within limit that has one cell matching
// the registered rule and a different cell matching the eligible rule.
func FindHeaderRow(grid models.Grid, rules []config.ColumnRule, limit int) (int, bool) {
	registered, _ := ruleFor(rules, config.FieldRegistered)
	eligible, _ := ruleFor(rules, config.FieldEligible)

	for i := 0; i < len(grid) && i < limit; i++ {
		regCols := matchingCells(grid[i], registered)
		eliCols := matchingCells(grid[i], eligible)
		for _, r := range regCols {
			for _, e := range eliCols {
				if r != e {
					return i, true
				}
			}
		}
	}
	return NotFound, false
}

// ResolveColumns maps each rule to the first header cell it matches.
func ResolveColumns(header models.Row, rules []config.ColumnRule) Columns {
	cols := Columns{
		Depository: depositoryColumn,
		Registered: NotFound,
		Eligible:   NotFound,
		Total:      NotFound,
		PrevTotal:  NotFound,
		Change:     NotFound,
	}
	for _, rule := range rules {
		idx := NotFound
		if found := matchingCells(header, rule); len(found) > 0 {
			idx = found[0]
		}
		switch rule.Field {
		case config.FieldRegistered:
			cols.Registered = idx
		case config.FieldEligible:
			cols.Eligible = idx
		case config.FieldTotal:
			cols.Total = idx
		case config.FieldPrevTotal:
			cols.PrevTotal = idx
		case config.FieldChange:
			cols.Change = idx
		}
	}
	return cols
}

// FindDates scans the first limit rows for "REPORT DATE: M/D/YYYY" and
// "ACTIVITY DATE: M/D/YYYY", keeping the first hit of each.
func FindDates(grid models.Grid, limit int) (report, activity *string) {
	for i := 0; i < len(grid) && i < limit; i++ {
		parts := make([]string, len(grid[i]))
		for j, c := range grid[i] {
			parts[j] = strings.TrimSpace(c.String())
		}
		line := strings.ToUpper(strings.Join(parts, " "))

		if report == nil {
			if m := reportDateRegexp.FindStringSubmatch(line); m != nil {
				report = ParseDate(m[1])
			}
		}
		if activity == nil {
			if m := activityDateRegexp.FindStringSubmatch(line); m != nil {
				activity = ParseDate(m[1])
			}
		}
		if report != nil && activity != nil {
			break
		}
	}
	return report, activity
}

// ParseDate converts M/D/YYYY into YYYY-MM-DD, computed in UTC. Out-of-range
// days roll over the way calendar arithmetic does (2/30 becomes March 1st).
func ParseDate(mdy string) *string {
	m := mdyRegexp.FindStringSubmatch(strings.TrimSpace(mdy))
	if m == nil {
		return nil
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	s := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
	return &s
}

func ruleFor(rules []config.ColumnRule, field string) (config.ColumnRule, bool) {
	for _, r := range rules {
		if r.Field == field {
			return r, true
		}
	}
	return config.ColumnRule{}, false
}

func matchingCells(row models.Row, rule config.ColumnRule) []int {
	var out []int
	for i, c := range row {
		if ruleMatches(rule, c.Normalized()) {
			out = append(out, i)
		}
	}
	return out
}

func ruleMatches(rule config.ColumnRule, text string) bool {
	if text == "" {
		return false
	}
	for _, e := range rule.Exact {
		if text == e {
			return true
		}
	}
	if len(rule.Contains) == 0 {
		return false
	}
	for _, s := range rule.Contains {
		if !strings.Contains(text, s) {
			return false
		}
	}
	for _, s := range rule.Excludes {
		if strings.Contains(text, s) {
			return false
		}
	}
	return true
}
