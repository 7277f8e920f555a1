package render

import (
	"strings"

	"github.com/derickschaefer/gaflat/internal/flatten"
	"github.com/derickschaefer/gaflat/internal/model"
)

// Delimited renders report as quoted, delimiter-separated text.
//
// The header line quotes every column name. Each row line quotes the
// dimension values and writes metric values raw:
//
//	"ga:deviceCategory","ga:sessions"
//	"desktop",43
//
// A report without dimensions writes metric values only, and a report
// without rows renders as the header line alone. Embedded quotes are not
// escaped; use the csv format when the output must round-trip.
func Delimited(report *model.Report, delimiter string) string {
	var b strings.Builder

	headers := flatten.ResolveHeaders(report)
	for i, h := range headers {
		if i > 0 {
			b.WriteString(delimiter)
		}
		writeQuoted(&b, h)
	}
	b.WriteByte('\n')

	for i := range report.Rows {
		row := &report.Rows[i]
		if len(row.DimensionValues) > 0 {
			for j, v := range row.DimensionValues {
				if j > 0 {
					b.WriteString(delimiter)
				}
				writeQuoted(&b, v)
			}
			b.WriteString(delimiter)
		}
		b.WriteString(strings.Join(flatten.MetricValues(row), delimiter))
		b.WriteByte('\n')
	}
	return b.String()
}

// DelimitedAll renders each report of resp independently, in order.
func DelimitedAll(resp *model.ReportResponse, delimiter string) []string {
	out := make([]string, len(resp.Reports))
	for i := range resp.Reports {
		out[i] = Delimited(&resp.Reports[i], delimiter)
	}
	return out
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(s)
	b.WriteByte('"')
}
