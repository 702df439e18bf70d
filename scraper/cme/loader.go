package cme

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"warehouse-stocks/config"
	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

// maxReportBytes caps the body read from the source. The published report is
// well under a megabyte.
const maxReportBytes = 32 << 20

var (
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipSignature = []byte("PK\x03\x04")
)

// CookieSource supplies cookies to attach to the report request.
type CookieSource interface {
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}

// Loader fetches the report and decodes it into a raw grid. It never retries;
// callers wrap it in utils.RetryConfig when they want to.
type Loader struct {
	client    *http.Client
	userAgent string
	cookies   CookieSource
	logger    *utils.Logger
}

// NewLoader creates a Loader using the configured timeout and User-Agent.
func NewLoader(cfg *config.Config, logger *utils.Logger) *Loader {
	return &Loader{
		client:    &http.Client{Timeout: cfg.HTTPTimeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// WithCookieSource attaches a cookie provider used on every fetch.
func (l *Loader) WithCookieSource(src CookieSource) *Loader {
	l.cookies = src
	return l
}

// Load fetches url and decodes the first sheet.
func (l *Loader) Load(ctx context.Context, url string) (models.Grid, error) {
	data, err := l.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	grid, err := Decode(data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("[cme] Decoded %d rows from %d bytes", len(grid), len(data))
	return grid, nil
}

// Fetch performs a single GET of url and returns the body.
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "application/vnd.ms-excel,application/octet-stream,*/*")
	req.Header.Set("Cache-Control", "no-cache")

	if l.cookies != nil {
		cookies, err := l.cookies.Cookies(ctx)
		if err != nil {
			l.logger.Warn("[cme] Browser warm-up failed, fetching without cookies: %v", err)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	l.logger.Info("[cme] Fetched %s (%d bytes)", url, len(data))
	return data, nil
}

// Decode reads the first sheet of a legacy BIFF (.xls) or OOXML (.xlsx)
// workbook. Cells are kept as text, in source row and column order; blank
// rows are kept so row indices match the sheet.
func Decode(data []byte) (models.Grid, error) {
	switch {
	case bytes.HasPrefix(data, oleSignature):
		return decodeXLS(data)
	case bytes.HasPrefix(data, zipSignature):
		return decodeXLSX(data)
	case len(data) == 0:
		return nil, &DecodeError{Err: errors.New("empty body")}
	default:
		return nil, &DecodeError{Err: errors.New("unrecognised file signature")}
	}
}

func decodeXLS(data []byte) (grid models.Grid, err error) {
	// The BIFF reader panics on some truncated streams.
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, &DecodeError{Format: "xls", Err: fmt.Errorf("reader panic: %v", r)}
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &DecodeError{Format: "xls", Err: err}
	}
	if wb.NumSheets() == 0 {
		return nil, &DecodeError{Format: "xls", Err: errors.New("workbook has no sheets")}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &DecodeError{Format: "xls", Err: errors.New("first sheet unreadable")}
	}
	if sheet.MaxRow == 0 {
		// a single-row sheet cannot hold a header and a totals row
		return models.Grid{}, nil
	}

	// ReadAllCells fills sheets in order until the row budget is spent, so a
	// budget of MaxRow+1 reads the first sheet only. Rows without cells come
	// back nil and keep their index.
	n := int(sheet.MaxRow) + 1
	rows := wb.ReadAllCells(n)
	if len(rows) > n {
		rows = rows[:n]
	}

	grid = make(models.Grid, len(rows))
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cells := make(models.Row, len(r))
		for j, v := range r {
			cells[j] = models.TextCell(v)
		}
		grid[i] = cells
	}
	return grid, nil
}

func decodeXLSX(data []byte) (models.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &DecodeError{Format: "xlsx", Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}

	grid := make(models.Grid, len(rows))
	for i, r := range rows {
		cells := make(models.Row, len(r))
		for j, v := range r {
			cells[j] = models.TextCell(v)
		}
		grid[i] = cells
	}
	return grid, nil
}
