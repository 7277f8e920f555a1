// Package schema turns a raw Reporting API v4 batchGet response into the
// read-only model.ReportResponse.
//
// Parsing is strict. A document either converts completely or fails with a
// *Error wrapping ErrSchemaMismatch; there is no partial result. Beyond plain
// decoding, Parse rejects:
//
//   - top-level keys other than reports, queryCost and resourceQuotasRemaining
//   - pivot table reports (metricHeader.pivotHeaders or pivotValueRegions)
//   - missing required fields and unknown metric types
//   - rows whose dimension or value counts disagree with the column header,
//     and reports whose rows carry different numbers of date ranges
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/derickschaefer/gaflat/internal/model"
)

// json is the standard-library compatible config with case-sensitive field
// matching: the API's camelCase names are the only accepted spelling.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	CaseSensitive:          true,
}.Froze()

// ErrSchemaMismatch is the sentinel every parse failure matches via errors.Is.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Error describes why a document was rejected. Path is a JSON-style location
// such as reports[0].data.rows[3].metrics; it is empty for document-level
// failures.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrSchemaMismatch, e.Reason)
	}
	return fmt.Sprintf("%s at %s: %s", ErrSchemaMismatch, e.Path, e.Reason)
}

// Is reports whether target is ErrSchemaMismatch.
func (e *Error) Is(target error) bool { return target == ErrSchemaMismatch }

// Unwrap returns the underlying decode error, if any.
func (e *Error) Unwrap() error { return e.Err }

func mismatch(path, format string, args ...interface{}) *Error {
	return &Error{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ReasonPivot is the Reason given for pivot table reports.
const ReasonPivot = "pivot table reports are not supported"

var topLevelKeys = map[string]bool{
	"reports":                 true,
	"queryCost":               true,
	"resourceQuotasRemaining": true,
}

// Parse decodes raw into a ReportResponse.
func Parse(raw []byte) (*model.ReportResponse, error) {
	var keys map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, &Error{Reason: "invalid JSON document: " + err.Error(), Err: err}
	}
	if keys == nil {
		return nil, mismatch("", "document must be a JSON object")
	}
	var unknown []string
	for k := range keys {
		if !topLevelKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, mismatch("", "unknown field(s) %s", strings.Join(unknown, ", "))
	}

	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &Error{Reason: "decoding response: " + err.Error(), Err: err}
	}
	if err := rejectPivots(&w); err != nil {
		return nil, err
	}
	if err := validateRequired(&w); err != nil {
		return nil, err
	}
	return convert(&w)
}

// rejectPivots fails on any pivot construct, wherever it appears.
func rejectPivots(w *wireResponse) error {
	for i, rep := range w.Reports {
		if rep == nil {
			continue
		}
		base := fmt.Sprintf("reports[%d]", i)
		if rep.ColumnHeader != nil && rep.ColumnHeader.MetricHeader != nil &&
			rep.ColumnHeader.MetricHeader.PivotHeaders != nil {
			return mismatch(base+".columnHeader.metricHeader.pivotHeaders", ReasonPivot)
		}
		if rep.Data == nil {
			continue
		}
		for j, row := range rep.Data.Rows {
			if row == nil {
				continue
			}
			if p := firstPivot(row.Metrics); p >= 0 {
				return mismatch(fmt.Sprintf("%s.data.rows[%d].metrics[%d].pivotValueRegions", base, j, p), ReasonPivot)
			}
		}
		aggregates := map[string][]*wireDateRangeValues{
			"totals":   rep.Data.Totals,
			"minimums": rep.Data.Minimums,
			"maximums": rep.Data.Maximums,
		}
		for _, name := range []string{"totals", "minimums", "maximums"} {
			if p := firstPivot(aggregates[name]); p >= 0 {
				return mismatch(fmt.Sprintf("%s.data.%s[%d].pivotValueRegions", base, name, p), ReasonPivot)
			}
		}
	}
	return nil
}

func firstPivot(sets []*wireDateRangeValues) int {
	for i, s := range sets {
		if s != nil && s.PivotValueRegions != nil {
			return i
		}
	}
	return -1
}

// convert maps the wire document onto the model, checking row alignment.
func convert(w *wireResponse) (*model.ReportResponse, error) {
	out := &model.ReportResponse{
		Reports:   make([]model.Report, 0, len(w.Reports)),
		QueryCost: w.QueryCost,
	}
	if q := w.ResourceQuotasRemaining; q != nil {
		out.ResourceQuotasRemaining = &model.ResourceQuotas{
			DailyQuotaTokensRemaining:  q.DailyQuotaTokensRemaining,
			HourlyQuotaTokensRemaining: q.HourlyQuotaTokensRemaining,
		}
	}
	for i, wr := range w.Reports {
		rep, err := convertReport(fmt.Sprintf("reports[%d]", i), wr)
		if err != nil {
			return nil, err
		}
		out.Reports = append(out.Reports, rep)
	}
	return out, nil
}

func convertReport(path string, wr *wireReport) (model.Report, error) {
	mh := wr.ColumnHeader.MetricHeader
	rep := model.Report{
		DimensionNames:      nonNil(wr.ColumnHeader.Dimensions),
		MetricHeaderEntries: make([]model.MetricHeaderEntry, len(mh.MetricHeaderEntries)),
		Rows:                make([]model.ReportRow, 0, len(wr.Data.Rows)),
		NextPageToken:       wr.NextPageToken,
		Aggregates: model.Aggregates{
			Totals:             valueSets(wr.Data.Totals),
			Minimums:           valueSets(wr.Data.Minimums),
			Maximums:           valueSets(wr.Data.Maximums),
			RowCount:           wr.Data.RowCount,
			SamplesReadCounts:  wr.Data.SamplesReadCounts,
			SamplingSpaceSizes: wr.Data.SamplingSpaceSizes,
			IsDataGolden:       wr.Data.IsDataGolden,
			DataLastRefreshed:  wr.Data.DataLastRefreshed,
		},
	}
	for i, e := range mh.MetricHeaderEntries {
		rep.MetricHeaderEntries[i] = model.MetricHeaderEntry{Name: e.Name, Type: model.MetricType(e.Type)}
	}

	nDims := len(rep.DimensionNames)
	nMetrics := len(rep.MetricHeaderEntries)
	ranges := -1
	for j, wrow := range wr.Data.Rows {
		rowPath := fmt.Sprintf("%s.data.rows[%d]", path, j)
		if len(wrow.Dimensions) != nDims {
			return model.Report{}, mismatch(rowPath+".dimensions",
				"row has %d dimension value(s), column header declares %d", len(wrow.Dimensions), nDims)
		}
		if ranges < 0 {
			ranges = len(wrow.Metrics)
		} else if len(wrow.Metrics) != ranges {
			return model.Report{}, mismatch(rowPath+".metrics",
				"row has %d date range(s), earlier rows have %d", len(wrow.Metrics), ranges)
		}
		row := model.ReportRow{
			DimensionValues: nonNil(wrow.Dimensions),
			DateRangeValues: make([]model.DateRangeValueSet, len(wrow.Metrics)),
		}
		for k, set := range wrow.Metrics {
			if len(set.Values) != nMetrics {
				return model.Report{}, mismatch(fmt.Sprintf("%s.metrics[%d].values", rowPath, k),
					"date range has %d value(s), metric header declares %d", len(set.Values), nMetrics)
			}
			row.DateRangeValues[k] = model.DateRangeValueSet{Values: set.Values}
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}

func valueSets(in []*wireDateRangeValues) []model.DateRangeValueSet {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.DateRangeValueSet, len(in))
	for i, s := range in {
		if s != nil {
			out[i] = model.DateRangeValueSet{Values: s.Values}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
