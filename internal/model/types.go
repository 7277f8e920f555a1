// Package model defines the canonical data types used throughout gaflat.
// The report types are the parsed, read-only form of a Reporting API v4
// batchGet response; the Result envelope is what every CLI command renders.
package model

import (
	"time"
)

// ─── Report Document ──────────────────────────────────────────────────────────

// MetricType is the declared type of a metric column.
type MetricType string

// MetricType values as they appear on the wire.
const (
	MetricTypeUnspecified MetricType = "METRIC_TYPE_UNSPECIFIED"
	MetricTypeInteger     MetricType = "INTEGER"
	MetricTypeFloat       MetricType = "FLOAT"
	MetricTypeCurrency    MetricType = "CURRENCY"
	MetricTypePercent     MetricType = "PERCENT"
	MetricTypeTime        MetricType = "TIME"
)

// MetricTypes lists every accepted MetricType in declaration order.
var MetricTypes = []MetricType{
	MetricTypeUnspecified,
	MetricTypeInteger,
	MetricTypeFloat,
	MetricTypeCurrency,
	MetricTypePercent,
	MetricTypeTime,
}

// MetricHeaderEntry names one metric column.
type MetricHeaderEntry struct {
	Name string     `json:"name"`
	Type MetricType `json:"type"`
}

// DateRangeValueSet holds one date range's metric values for a row,
// aligned positionally with the report's MetricHeaderEntries.
type DateRangeValueSet struct {
	Values []string `json:"values"`
}

// ReportRow is one row of a report. DimensionValues align with the owning
// report's DimensionNames; DateRangeValues has one entry per requested range.
type ReportRow struct {
	DimensionValues []string            `json:"dimension_values"`
	DateRangeValues []DateRangeValueSet `json:"date_range_values"`
}

// Aggregates carries the report-level summary fields. Nothing in the
// flattening path reads them.
type Aggregates struct {
	Totals             []DateRangeValueSet `json:"totals,omitempty"`
	Minimums           []DateRangeValueSet `json:"minimums,omitempty"`
	Maximums           []DateRangeValueSet `json:"maximums,omitempty"`
	RowCount           int64               `json:"row_count"`
	SamplesReadCounts  []string            `json:"samples_read_counts,omitempty"`
	SamplingSpaceSizes []string            `json:"sampling_space_sizes,omitempty"`
	IsDataGolden       bool                `json:"is_data_golden"`
	DataLastRefreshed  string              `json:"data_last_refreshed,omitempty"`
}

// Report is a single tabular report.
type Report struct {
	DimensionNames      []string            `json:"dimension_names"`
	MetricHeaderEntries []MetricHeaderEntry `json:"metric_header_entries"`
	Rows                []ReportRow         `json:"rows"`
	NextPageToken       string              `json:"next_page_token,omitempty"`
	Aggregates          Aggregates          `json:"aggregates"`
}

// ResourceQuotas is the remaining API quota reported alongside a response.
type ResourceQuotas struct {
	DailyQuotaTokensRemaining  int64 `json:"daily_quota_tokens_remaining"`
	HourlyQuotaTokensRemaining int64 `json:"hourly_quota_tokens_remaining"`
}

// ReportResponse is the whole parsed document. Report order is output order.
type ReportResponse struct {
	Reports                 []Report        `json:"reports"`
	QueryCost               int64           `json:"query_cost,omitempty"`
	ResourceQuotasRemaining *ResourceQuotas `json:"resource_quotas_remaining,omitempty"`
}

// RowCount returns the number of rows across all reports.
func (r *ReportResponse) RowCount() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.Rows)
	}
	return n
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries size and timing metadata for a command result.
type ResultStats struct {
	Reports    int    `json:"reports"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
	Source     string `json:"source"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindReports = "reports"
	KindTable   = "table"
)

// TableData is a generic header + rows payload for KindTable results.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
