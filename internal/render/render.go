// Package render converts parsed reports into human-readable or
// machine-parseable output. Delimited and Records are the two core
// renderers; the Render dispatcher wraps them (and a few display formats)
// for the CLI.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/gaflat/internal/flatten"
	"github.com/derickschaefer/gaflat/internal/model"
)

// Format constants matching --format flag values.
const (
	FormatTable     = "table"
	FormatJSON      = "json"
	FormatJSONL     = "jsonl"
	FormatCSV       = "csv"
	FormatTSV       = "tsv"
	FormatDelimited = "delimited"
	FormatMD        = "md"
)

// Formats lists every supported format, for flag help and validation.
var Formats = []string{FormatDelimited, FormatCSV, FormatTSV, FormatJSON, FormatJSONL, FormatTable, FormatMD}

// Options controls format-specific behaviour.
type Options struct {
	Format    string
	Delimiter string    // FormatDelimited only; defaults to ","
	Values    ValueMode // FormatJSON and FormatJSONL
}

// ValidFormat reports whether f is a supported format.
func ValidFormat(f string) bool {
	for _, x := range Formats {
		if x == f {
			return true
		}
	}
	return false
}

// Render writes result to w in the format named by opts.
func Render(w io.Writer, result *model.Result, opts Options) error {
	switch result.Kind {
	case model.KindReports:
		reports, ok := result.Data.([]model.Report)
		if !ok {
			return fmt.Errorf("unexpected data type for %s: %T", result.Kind, result.Data)
		}
		return renderReports(w, reports, opts)
	case model.KindTable:
		td, ok := result.Data.(*model.TableData)
		if !ok {
			return fmt.Errorf("unexpected data type for %s: %T", result.Kind, result.Data)
		}
		return renderTableData(w, td, opts.Format)
	default:
		return renderJSON(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, opts Options) error {
	if path == "" {
		return Render(os.Stdout, result, opts)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, opts)
}

func renderReports(w io.Writer, reports []model.Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return renderRecordsJSON(w, reports, opts.Values)
	case FormatJSONL:
		return renderRecordsJSONL(w, reports, opts.Values)
	case FormatCSV:
		return renderCSV(w, reports, ',')
	case FormatTSV:
		return renderCSV(w, reports, '\t')
	case FormatTable:
		return renderReportTables(w, reports)
	case FormatMD:
		return renderMarkdown(w, reports)
	default:
		delim := opts.Delimiter
		if delim == "" {
			delim = ","
		}
		for i := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if _, err := io.WriteString(w, Delimited(&reports[i], delim)); err != nil {
				return err
			}
		}
		return nil
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRecordsJSON(w io.Writer, reports []model.Report, mode ValueMode) error {
	all := make([][]Record, len(reports))
	for i := range reports {
		recs, err := Records(&reports[i], mode)
		if err != nil {
			return fmt.Errorf("report %d: %w", i, err)
		}
		all[i] = recs
	}
	return renderJSON(w, all)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// ReportKey is the field jsonl output adds to tag each record with the
// index of the report it came from.
const ReportKey = "_report"

func renderRecordsJSONL(w io.Writer, reports []model.Report, mode ValueMode) error {
	enc := json.NewEncoder(w)
	for i := range reports {
		recs, err := Records(&reports[i], mode)
		if err != nil {
			return fmt.Errorf("report %d: %w", i, err)
		}
		for _, rec := range recs {
			line := make(Record, 0, len(rec)+1)
			line = append(line, Field{Key: ReportKey, Value: i})
			line = append(line, rec...)
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
	}
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderCSV(w io.Writer, reports []model.Report, sep rune) error {
	for i := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		cw := csv.NewWriter(w)
		cw.Comma = sep
		rep := &reports[i]
		_ = cw.Write(flatten.ResolveHeaders(rep))
		for j := range rep.Rows {
			_ = cw.Write(flatten.FlattenRow(&rep.Rows[j]))
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}
	return nil
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderReportTables(w io.Writer, reports []model.Report) error {
	for i := range reports {
		rep := &reports[i]
		if len(reports) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "Report %d\n", i+1)
		}
		headers := flatten.ResolveHeaders(rep)
		align := make([]int, len(headers))
		for j := range align {
			align[j] = tablewriter.ALIGN_RIGHT
			if j < len(rep.DimensionNames) {
				align[j] = tablewriter.ALIGN_LEFT
			}
		}
		tw := newTable(w, headers)
		tw.SetColumnAlignment(align)
		for j := range rep.Rows {
			tw.Append(flatten.FlattenRow(&rep.Rows[j]))
		}
		tw.Render()
	}
	return nil
}

func renderTableData(w io.Writer, td *model.TableData, format string) error {
	switch format {
	case FormatJSON, FormatJSONL:
		return renderJSON(w, td)
	case FormatCSV, FormatTSV, FormatDelimited:
		cw := csv.NewWriter(w)
		if format == FormatTSV {
			cw.Comma = '\t'
		}
		_ = cw.Write(td.Headers)
		for _, r := range td.Rows {
			_ = cw.Write(r)
		}
		cw.Flush()
		return cw.Error()
	case FormatMD:
		writeMarkdownTable(w, td.Headers, td.Rows)
		return nil
	default:
		tw := newTable(w, td.Headers)
		tw.AppendBulk(td.Rows)
		tw.Render()
		return nil
	}
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, reports []model.Report) error {
	for i := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		rep := &reports[i]
		rows := make([][]string, len(rep.Rows))
		for j := range rep.Rows {
			rows[j] = flatten.FlattenRow(&rep.Rows[j])
		}
		writeMarkdownTable(w, flatten.ResolveHeaders(rep), rows)
	}
	return nil
}

func writeMarkdownTable(w io.Writer, headers []string, rows [][]string) {
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = mdEscape(h)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(headers)))
	for _, r := range rows {
		cells = cells[:0]
		for _, c := range r {
			cells = append(cells, mdEscape(c))
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d reports • %d rows • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Reports,
			result.Stats.Rows,
			result.Stats.DurationMs,
			result.Stats.Source,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
