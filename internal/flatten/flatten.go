// Package flatten computes the column layout shared by every output format.
//
// A report flattens to its dimension columns followed by its metric columns
// in range-major order: every metric of the first date range, then every
// metric of the second, and so on. Metric names for ranges after the first
// carry a "_<n>" suffix (ga:sessions, ga:sessions_2, ...). ResolveHeaders and
// FlattenRow always agree on length and position for rows of the same report.
package flatten

import (
	"strconv"

	"github.com/derickschaefer/gaflat/internal/model"
)

// DateRangeCount returns the number of date ranges in report. A report with
// no rows counts as a single range so its base metric names still appear.
func DateRangeCount(report *model.Report) int {
	if len(report.Rows) == 0 || len(report.Rows[0].DateRangeValues) == 0 {
		return 1
	}
	return len(report.Rows[0].DateRangeValues)
}

// ResolveHeaders returns the ordered output column names for report.
func ResolveHeaders(report *model.Report) []string {
	ranges := DateRangeCount(report)
	metrics := report.MetricHeaderEntries
	headers := make([]string, 0, len(report.DimensionNames)+ranges*len(metrics))
	headers = append(headers, report.DimensionNames...)
	return append(headers, MetricHeaders(report)...)
}

// MetricHeaders returns only the metric portion of ResolveHeaders.
func MetricHeaders(report *model.Report) []string {
	ranges := DateRangeCount(report)
	metrics := report.MetricHeaderEntries
	out := make([]string, 0, ranges*len(metrics))
	for r := 0; r < ranges; r++ {
		for _, entry := range metrics {
			out = append(out, metricName(entry.Name, r))
		}
	}
	return out
}

func metricName(name string, rangeIndex int) string {
	if rangeIndex == 0 {
		return name
	}
	return name + "_" + strconv.Itoa(rangeIndex+1)
}

// FlattenRow returns the row's dimension values followed by its metric
// values, matching the positions of ResolveHeaders.
func FlattenRow(row *model.ReportRow) []string {
	out := make([]string, 0, len(row.DimensionValues)+valueCount(row))
	out = append(out, row.DimensionValues...)
	return appendMetricValues(out, row)
}

// MetricValues returns only the metric portion of FlattenRow.
func MetricValues(row *model.ReportRow) []string {
	return appendMetricValues(make([]string, 0, valueCount(row)), row)
}

func appendMetricValues(dst []string, row *model.ReportRow) []string {
	for _, set := range row.DateRangeValues {
		dst = append(dst, set.Values...)
	}
	return dst
}

func valueCount(row *model.ReportRow) int {
	n := 0
	for _, set := range row.DateRangeValues {
		n += len(set.Values)
	}
	return n
}
