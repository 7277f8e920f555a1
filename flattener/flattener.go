// Package flattener converts Google Analytics Reporting API v4 batchGet
// responses into flat outputs: a quoted delimited-text table per report, or
// a JSON array of row records per report.
//
//	tables, err := flattener.ToDelimited(raw, ",")
//	records, err := flattener.ToRecords(raw)
//
// Both entry points parse strictly. A document that does not match the
// report-response schema (including pivot table reports) fails with an
// error matching ErrSchemaMismatch and produces no output.
package flattener

import (
	"encoding/json"
	"fmt"

	"github.com/derickschaefer/gaflat/internal/model"
	"github.com/derickschaefer/gaflat/internal/render"
	"github.com/derickschaefer/gaflat/internal/schema"
)

// ErrSchemaMismatch matches every parse failure via errors.Is.
var ErrSchemaMismatch = schema.ErrSchemaMismatch

// ErrInvalidMetricValue matches typed-record failures via errors.Is.
var ErrInvalidMetricValue = render.ErrInvalidMetricValue

// ValueMode selects how metric values appear in records.
type ValueMode = render.ValueMode

// Value modes accepted by Options.Values.
const (
	ValueString  = render.ValueString
	ValueNumber  = render.ValueNumber
	ValueDecimal = render.ValueDecimal
)

// Aliases so callers outside this module can name the parsed document.
type (
	ReportResponse = model.ReportResponse
	Report         = model.Report
	Record         = render.Record
)

// EmptyRecords is what ToRecords returns for empty input.
var EmptyRecords = json.RawMessage("[]")

// Options configures ToRecordsWith.
type Options struct {
	Values ValueMode
}

// Parse decodes raw into the read-only report document.
func Parse(raw string) (*model.ReportResponse, error) {
	return schema.Parse([]byte(raw))
}

// ToDelimited renders each report of raw as quoted delimited text, one
// string per report. Empty input yields a single empty string.
func ToDelimited(raw, delimiter string) ([]string, error) {
	if raw == "" {
		return []string{""}, nil
	}
	resp, err := schema.Parse([]byte(raw))
	if err != nil {
		return nil, err
	}
	return render.DelimitedAll(resp, delimiter), nil
}

// ToRecords renders raw as a JSON array holding one array of row records
// per report. Values are kept as the raw strings from the response. Empty
// input yields EmptyRecords.
func ToRecords(raw string) (json.RawMessage, error) {
	return ToRecordsWith(raw, Options{Values: ValueString})
}

// ToRecordsWith is ToRecords with an explicit value mode. An unknown mode is
// an error even for empty input.
func ToRecordsWith(raw string, opts Options) (json.RawMessage, error) {
	mode, err := render.ParseValueMode(string(opts.Values))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return EmptyRecords, nil
	}
	resp, err := schema.Parse([]byte(raw))
	if err != nil {
		return nil, err
	}
	all, err := render.RecordsAll(resp, mode)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}
	return b, nil
}
