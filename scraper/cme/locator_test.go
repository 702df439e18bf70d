package cme

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-stocks/config"
	"warehouse-stocks/models"
)

func TestLocateScenarioHeader(t *testing.T) {
	schema, err := testLocator().Locate(scenarioGrid())
	require.NoError(t, err)

	assert.Equal(t, 3, schema.HeaderRow)
	assert.Equal(t, Columns{Depository: 0, Registered: 1, Eligible: 2, Total: 3, PrevTotal: 4, Change: 5}, schema.Columns)
	require.NotNil(t, schema.ReportDate)
	require.NotNil(t, schema.ActivityDate)
	assert.Equal(t, "2026-02-13", *schema.ReportDate)
	assert.Equal(t, "2026-02-12", *schema.ActivityDate)
}

func TestLocateToleratesRelabelledHeaders(t *testing.T) {
	grid := models.Grid{
		textRow("Depository", "  Registered Ounces ", "Eligible Oz", "Prev Total", "Total Today", "Net Change", "Change %"),
	}
	schema, err := testLocator().Locate(grid)
	require.NoError(t, err)

	assert.Equal(t, 1, schema.Columns.Registered)
	assert.Equal(t, 2, schema.Columns.Eligible)
	assert.Equal(t, 3, schema.Columns.PrevTotal)
	assert.Equal(t, 4, schema.Columns.Total, "plain total must not resolve to the PREV TOTAL column")
	assert.Equal(t, 5, schema.Columns.Change, "percentage column must not be taken as change")
}

func TestLocateMissingOptionalColumns(t *testing.T) {
	grid := models.Grid{textRow("DEPOSITORY", "REGISTERED", "ELIGIBLE")}
	schema, err := testLocator().Locate(grid)
	require.NoError(t, err)

	assert.Equal(t, NotFound, schema.Columns.Total)
	assert.Equal(t, NotFound, schema.Columns.PrevTotal)
	assert.Equal(t, NotFound, schema.Columns.Change)
	assert.Nil(t, schema.ReportDate)
	assert.Nil(t, schema.ActivityDate)
}

func TestLocateHeaderRequiresTwoCells(t *testing.T) {
	grid := models.Grid{
		textRow("REGISTERED/ELIGIBLE summary"),
		textRow("DEPOSITORY", "REGISTERED", "ELIGIBLE"),
	}
	idx, ok := FindHeaderRow(grid, config.DefaultColumnRules(), 120)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestLocateSchemaNotFoundBeyondScanWindow(t *testing.T) {
	grid := make(models.Grid, 0, 151)
	for i := 0; i < 150; i++ {
		grid = append(grid, textRow(fmt.Sprintf("filler %d", i), "123"))
	}
	grid = append(grid, textRow("DEPOSITORY", "REGISTERED", "ELIGIBLE"))

	_, err := testLocator().Locate(grid)
	var schemaErr *SchemaNotFoundError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, 120, schemaErr.ScannedRows)
}

func TestLocateCustomRules(t *testing.T) {
	rules := config.DefaultColumnRules()
	rules[0] = config.ColumnRule{Field: config.FieldRegistered, Contains: []string{"WARRANTED"}}

	grid := models.Grid{textRow("DEPOSITORY", "WARRANTED", "ELIGIBLE", "TOTAL")}
	schema, err := NewLocator(rules, 10, 10).Locate(grid)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.Columns.Registered)
}

func TestFindDatesFirstMatchWins(t *testing.T) {
	grid := models.Grid{
		textRow("report date: 1/5/2024"),
		textRow("REPORT DATE : 2/6/2024", "ACTIVITY   DATE:1/4/2024"),
	}
	report, activity := FindDates(grid, 40)
	require.NotNil(t, report)
	require.NotNil(t, activity)
	assert.Equal(t, "2024-01-05", *report)
	assert.Equal(t, "2024-01-04", *activity)
}

func TestFindDatesRespectsWindow(t *testing.T) {
	grid := make(models.Grid, 45)
	grid[44] = textRow("Report Date: 3/1/2024")
	report, activity := FindDates(grid, 40)
	assert.Nil(t, report)
	assert.Nil(t, activity)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2/13/2026", "2026-02-13"},
		{"02/03/2026", "2026-02-03"},
		{" 12/31/2025 ", "2025-12-31"},
		{"2/30/2024", "2024-03-01"},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if assert.NotNil(t, got, tt.in) {
			assert.Equal(t, tt.want, *got, tt.in)
		}
	}

	for _, bad := range []string{"", "2026-02-13", "13/2026", "1/1/26"} {
		assert.Nil(t, ParseDate(bad), bad)
	}
}
