package cme

import (
	"warehouse-stocks/config"
	"warehouse-stocks/models"
)

func textRow(cells ...string) models.Row {
	row := make(models.Row, len(cells))
	for i, c := range cells {
		row[i] = models.TextCell(c)
	}
	return row
}

func testConfig() *config.Config {
	return &config.Config{
		SourceURL:      "https://example.test/Silver_stocks.xls",
		HeaderScanRows: 120,
		DateScanRows:   40,
		ColumnRules:    config.DefaultColumnRules(),
	}
}

func testLocator() *Locator {
	return NewLocator(config.DefaultColumnRules(), 120, 40)
}

// scenarioGrid is a report with one depository and a totals row.
func scenarioGrid() models.Grid {
	return models.Grid{
		textRow("COMEX Warehouse Stocks"),
		textRow("Report Date: 2/13/2026", "", "Activity Date: 2/12/2026"),
		nil,
		textRow("DEPOSITORY", "REGISTERED", "ELIGIBLE", "TOTAL", "PREV TOTAL", "CHANGE"),
		textRow("Brinks", "1,000", "2,000", "3,000", "2,900", "100"),
		textRow("", "", ""),
		textRow("TOTAL", "10,000", "20,000", "30,000", "29,500", "500"),
		textRow("Footer note"),
	}
}
