package cme

import (
	"errors"
	"fmt"
)

// ErrTotalsRowNotFound is returned when no row below the header carries the
// TOTAL marker in the depository column.
var ErrTotalsRowNotFound = errors.New("cme: could not locate totals row")

// FetchError reports a transport failure or a non-2xx response from the source.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cme: fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("cme: fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports bytes that could not be read as a spreadsheet.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("cme: decode spreadsheet: %v", e.Err)
	}
	return fmt.Sprintf("cme: decode %s spreadsheet: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SchemaNotFoundError means no header row with REGISTERED and ELIGIBLE
// columns appeared within the scan window; the layout changed beyond what the
// column rules tolerate.
type SchemaNotFoundError struct {
	ScannedRows int
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("cme: could not locate header row (REGISTERED/ELIGIBLE) in first %d rows", e.ScannedRows)
}
