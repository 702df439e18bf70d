package cme

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"warehouse-stocks/models"
)

// Extraction is the typed content found below the header row.
type Extraction struct {
	Records []models.WarehouseRecord
	Totals  models.TotalsRow
}

// Extract walks the rows under schema.HeaderRow, turning each depository row
// into a record until the first row whose name contains TOTAL. That row is
// returned separately as the aggregate. Rows with no holdings are dropped.
func Extract(grid models.Grid, schema *Schema) (*Extraction, error) {
	cols := schema.Columns
	out := &Extraction{}

	for i := schema.HeaderRow + 1; i < len(grid); i++ {
		row := grid[i]
		name := normaliseName(row.At(cols.Depository).String())
		if name == "" {
			continue
		}

		rec, prev := parseRow(row, name, cols)
		if strings.Contains(strings.ToUpper(name), "TOTAL") {
			out.Totals = models.TotalsRow{WarehouseRecord: rec, PrevTotalQty: prev}
			return out, nil
		}
		if !rec.HasData() {
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return nil, ErrTotalsRowNotFound
}

func parseRow(row models.Row, name string, cols Columns) (models.WarehouseRecord, *float64) {
	rec := models.WarehouseRecord{
		Name:          name,
		RegisteredQty: quantityAt(row, cols.Registered),
		EligibleQty:   quantityAt(row, cols.Eligible),
	}

	if cols.Total != NotFound {
		rec.TotalQty = quantityAt(row, cols.Total)
	} else if rec.RegisteredQty != nil || rec.EligibleQty != nil {
		rec.TotalQty = lo.ToPtr(lo.FromPtr(rec.RegisteredQty) + lo.FromPtr(rec.EligibleQty))
	}

	prev := quantityAt(row, cols.PrevTotal)
	switch {
	case cols.Change != NotFound:
		rec.ChangeQty = quantityAt(row, cols.Change)
	case rec.TotalQty != nil && prev != nil:
		rec.ChangeQty = lo.ToPtr(*rec.TotalQty - *prev)
	}
	return rec, prev
}

func quantityAt(row models.Row, col int) *float64 {
	if col == NotFound {
		return nil
	}
	return ParseQuantity(row.At(col))
}

// ParseQuantity reads a numeric cell. Text is trimmed and stripped of
// thousands separators; anything empty or unparsable is absent (nil).
func ParseQuantity(c models.Cell) *float64 {
	var v float64
	switch c.Kind {
	case models.CellNumber:
		v = c.Number
	case models.CellText:
		s := strings.TrimSpace(strings.ReplaceAll(c.Text, ",", ""))
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		v = n
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// normaliseName trims the depository label and collapses runs of internal
// whitespace, which the source uses for visual alignment.
func normaliseName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
