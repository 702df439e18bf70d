package cme

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

// workbookBytes renders grid as an .xlsx workbook.
func workbookBytes(t *testing.T, grid models.Grid) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range grid {
		if len(row) == 0 {
			continue
		}
		values := make([]any, len(row))
		for j, c := range row {
			values[j] = c.String()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// legacyWorkbook returns the BIFF8 fixture: the scenario report as the
// exchange publishes it, with numeric cells, blank rows 2 and 5, and a
// trailing note on row 7 that has no ROW record.
func legacyWorkbook(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "silver_stocks.xls"))
	require.NoError(t, err)
	return data
}

func newTestLoader() *Loader {
	cfg := testConfig()
	cfg.HTTPTimeout = 5 * time.Second
	cfg.UserAgent = "test-agent"
	return NewLoader(cfg, utils.NewDiscardLogger())
}

type staticCookies []*http.Cookie

func (s staticCookies) Cookies(context.Context) ([]*http.Cookie, error) { return s, nil }

func TestLoaderLoadsWorkbook(t *testing.T) {
	body := workbookBytes(t, scenarioGrid())
	var gotAgent, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		if c, err := r.Cookie("ak_bmsc"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	loader := newTestLoader().WithCookieSource(staticCookies{{Name: "ak_bmsc", Value: "abc"}})
	grid, err := loader.Load(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotAgent)
	assert.Equal(t, "abc", gotCookie)
	require.GreaterOrEqual(t, len(grid), 7)
	assert.Equal(t, "Brinks", grid[4].At(0).String())
	assert.Equal(t, "1,000", grid[4].At(1).String())
	assert.Empty(t, grid[2], "blank rows keep their position")
}

func TestLoaderFetchErrorOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestLoader().Load(context.Background(), srv.URL)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
}

func TestLoaderFetchErrorOnTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestLoader().Fetch(context.Background(), url)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.NotNil(t, fetchErr.Err)
}

func TestLoaderDecodeErrorOnHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Access Denied</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestLoader().Load(context.Background(), srv.URL)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestDecodeRejectsBrokenContainers(t *testing.T) {
	inputs := map[string][]byte{
		"empty":       nil,
		"truncated":   append(append([]byte{}, oleSignature...), 0x00, 0x01),
		"corrupt zip": append(append([]byte{}, zipSignature...), []byte("not really a zip")...),
	}
	for name, data := range inputs {
		_, err := Decode(data)
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), name)
	}
}

func TestDecodeLegacyWorkbook(t *testing.T) {
	grid, err := Decode(legacyWorkbook(t))
	require.NoError(t, err)
	require.Len(t, grid, 8)

	assert.Equal(t, "COMEX Warehouse Stocks", grid[0].At(0).String())

	require.Len(t, grid[1], 3)
	assert.Equal(t, "Report Date: 2/13/2026", grid[1].At(0).String())
	assert.Equal(t, models.CellEmpty, grid[1].At(1).Kind)
	assert.Equal(t, "Activity Date: 2/12/2026", grid[1].At(2).String())

	assert.Empty(t, grid[2], "blank rows keep their position")
	assert.Empty(t, grid[5], "blank rows keep their position")

	header := make([]string, len(grid[3]))
	for i, c := range grid[3] {
		header[i] = c.String()
	}
	assert.Equal(t, []string{"DEPOSITORY", "REGISTERED", "ELIGIBLE", "TOTAL", "PREV TOTAL", "CHANGE"}, header)

	brinks := make([]string, len(grid[4]))
	for i, c := range grid[4] {
		brinks[i] = c.String()
	}
	assert.Equal(t, []string{"Brinks", "1000", "2000", "3000", "2900", "100"}, brinks)

	assert.Equal(t, "TOTAL", grid[6].At(0).String())
	assert.Equal(t, "29500", grid[6].At(4).String())
	assert.Equal(t, "Footer note", grid[7].At(0).String())
}

func TestLoaderLoadsLegacyWorkbook(t *testing.T) {
	body := legacyWorkbook(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	grid, err := newTestLoader().Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, grid, 8)
	assert.Equal(t, "Brinks", grid[4].At(0).String())
}
