package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/gaflat/internal/model"
	"github.com/derickschaefer/gaflat/internal/pipeline"
)

var convertStore string

var convertCmd = &cobra.Command{
	Use:   "convert [FILE...]",
	Short: "Flatten batchGet response documents",
	Long: `Convert one or more Reporting API v4 batchGet response documents.

With no FILE, or when FILE is -, the document is read from stdin. Several
files are converted in parallel (see --concurrency) and printed in argument
order. A file that fails to convert is reported as a warning; the command
fails only when every input fails.

Every report in every response is rendered in turn. Pivot reports and
documents that do not match the response schema are rejected.`,
	Example: `  gaflat convert response.json
  gaflat convert response.json --delimiter '|'
  gaflat convert a.json b.json --format jsonl
  gaflat convert response.json --format json --values number
  curl ... | gaflat convert --format table
  gaflat convert response.json --store weekly`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		opts, err := resolveOptions(deps.Config)
		if err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			if in, ok := cmd.InOrStdin().(*os.File); ok && pipeline.IsTTY(in) {
				return fmt.Errorf("no input: pass a response file or pipe one on stdin")
			}
			paths = []string{"-"}
		}
		if stdinCount(paths) > 1 {
			return fmt.Errorf("stdin (-) may appear only once")
		}
		if convertStore != "" && len(paths) != 1 {
			return fmt.Errorf("--store accepts exactly one input document, got %d", len(paths))
		}

		results := convertInputs(paths, cmd.InOrStdin(), deps.Config.Concurrency)

		var (
			reports  []model.Report
			warnings []string
			failed   int
			sources  []string
		)
		for _, r := range results {
			if r.Err != nil {
				failed++
				deps.Log.WithError(r.Err).WithField("source", r.Source.Name).Debug("convert failed")
				warnings = append(warnings, r.Err.Error())
				continue
			}
			sources = append(sources, r.Source.Name)
			reports = append(reports, r.Resp.Reports...)
			warnings = append(warnings, pageWarnings(r.Source.Name, r.Resp)...)
		}
		if failed == len(results) {
			if failed == 1 {
				return results[0].Err
			}
			return fmt.Errorf("all %d inputs failed to convert; first error: %w", failed, results[0].Err)
		}

		if convertStore != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			r := results[0]
			entry, err := deps.Store.PutResponse(convertStore, r.Source.Name, r.Source.Raw, r.Resp)
			if err != nil {
				return fmt.Errorf("storing response: %w", err)
			}
			deps.Log.WithField("name", entry.Name).WithField("id", entry.ID).Debug("response stored")
		}

		result := buildReportsResult("convert", strings.Join(sources, ","), reports, started)
		result.Warnings = warnings
		return writeResult(cmd.OutOrStdout(), result, opts, deps.Config.Verbose)
	},
}

func stdinCount(paths []string) int {
	n := 0
	for _, p := range paths {
		if pipeline.IsStdin(p) {
			n++
		}
	}
	return n
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertStore, "store", "", "save the input document in the local store under NAME")
}
