package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/gaflat/internal/config"
	"github.com/derickschaefer/gaflat/internal/model"
	"github.com/derickschaefer/gaflat/internal/pipeline"
	"github.com/derickschaefer/gaflat/internal/render"
	"github.com/derickschaefer/gaflat/internal/schema"
)

// resolveOptions turns the resolved config into render options, validating
// the format and value mode.
func resolveOptions(cfg *config.Config) (render.Options, error) {
	format := cfg.Format
	if format == "" {
		format = render.FormatDelimited
	}
	if !render.ValidFormat(format) {
		return render.Options{}, fmt.Errorf("unknown format %q: expected one of %v", format, render.Formats)
	}
	mode, err := render.ParseValueMode(cfg.Values)
	if err != nil {
		return render.Options{}, err
	}
	delim := cfg.Delimiter
	if delim == "" {
		delim = config.DefaultDelimiter
	}
	return render.Options{Format: format, Delimiter: unescapeDelimiter(delim), Values: mode}, nil
}

// unescapeDelimiter lets users type \t for a tab on the command line.
func unescapeDelimiter(d string) string {
	switch d {
	case `\t`:
		return "\t"
	case `\n`:
		return "\n"
	default:
		return d
	}
}

// converted is one input document after parsing.
type converted struct {
	Source pipeline.Source
	Resp   *model.ReportResponse
	Err    error
}

// convertInputs reads and parses every path concurrently, at most limit at
// a time. Results keep the order of paths. An empty document converts to a
// response with no reports.
func convertInputs(paths []string, stdin io.Reader, limit int) []converted {
	if limit <= 0 {
		limit = config.DefaultConcurrency
	}
	out := make([]converted, len(paths))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			src, err := pipeline.ReadSource(path, stdin)
			if err != nil {
				out[i] = converted{Source: pipeline.Source{Name: path}, Err: err}
				return nil
			}
			out[i] = parseSource(src)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func parseSource(src pipeline.Source) converted {
	if len(src.Raw) == 0 {
		return converted{Source: src, Resp: &model.ReportResponse{}}
	}
	resp, err := schema.Parse(src.Raw)
	if err != nil {
		return converted{Source: src, Err: fmt.Errorf("%s: %w", src.Name, err)}
	}
	return converted{Source: src, Resp: resp}
}

// pageWarnings lists reports that have more rows available.
func pageWarnings(source string, resp *model.ReportResponse) []string {
	var warnings []string
	for i, rep := range resp.Reports {
		if rep.NextPageToken != "" {
			warnings = append(warnings, fmt.Sprintf("%s: report %d has more rows (nextPageToken %q)", source, i+1, rep.NextPageToken))
		}
	}
	return warnings
}

// buildReportsResult wraps reports in a Result envelope.
func buildReportsResult(command, source string, reports []model.Report, started time.Time) *model.Result {
	rows := 0
	for _, r := range reports {
		rows += len(r.Rows)
	}
	return &model.Result{
		Kind:        model.KindReports,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        reports,
		Stats: model.ResultStats{
			Reports:    len(reports),
			Rows:       rows,
			DurationMs: time.Since(started).Milliseconds(),
			Source:     source,
		},
	}
}

// buildTableResult wraps a generic header + rows payload.
func buildTableResult(command string, headers []string, rows [][]string) *model.Result {
	return &model.Result{
		Kind:        model.KindTable,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        &model.TableData{Headers: headers, Rows: rows},
		Stats:       model.ResultStats{Rows: len(rows)},
	}
}

// writeResult renders result to --out or w, then prints the footer to stderr
// unless --quiet.
func writeResult(w io.Writer, result *model.Result, opts render.Options, verbose bool) error {
	var err error
	if globalFlags.Out != "" {
		err = render.RenderTo(globalFlags.Out, result, opts)
	} else {
		err = render.Render(w, result, opts)
	}
	if err != nil {
		return err
	}
	if !globalFlags.Quiet {
		render.PrintFooter(os.Stderr, result, verbose)
	}
	return nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}
