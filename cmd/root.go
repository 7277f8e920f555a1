// Package cmd implements the gaflat CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/gaflat/internal/app"
	"github.com/derickschaefer/gaflat/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Token       string
	Format      string
	Out         string
	Delimiter   string
	Values      string
	Timeout     string
	Concurrency int
	Rate        float64
	DB          string
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `gaflat` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "gaflat",
	Short: "Flatten Google Analytics Reporting API v4 responses",
	Long: `gaflat converts Google Analytics Reporting API v4 batchGet responses into
flat tables: quoted delimited text, CSV/TSV, JSON records, or terminal tables.

Each report in a response is rendered independently. Dimension columns come
first, then metric columns; when a report requests several date ranges the
metric columns repeat per range with a _2, _3, ... suffix.

Pivot table reports are not supported and are rejected.

Quick start:
  gaflat convert response.json                  # quoted delimited text
  gaflat convert response.json --format json    # one record array per report
  cat response.json | gaflat convert --format table
  gaflat fetch --request request.json --save weekly`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.Token)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Delimiter != "" {
		cfg.Delimiter = globalFlags.Delimiter
	}
	if globalFlags.Values != "" {
		cfg.Values = globalFlags.Values
	}
	if globalFlags.Timeout != "" {
		if d, err2 := time.ParseDuration(globalFlags.Timeout); err2 == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Token, "token", "",
		"OAuth2 access token for the Reporting API (overrides env GAFLAT_TOKEN and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: delimited|csv|tsv|json|jsonl|table|md (default: delimited)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Delimiter, "delimiter", "",
		"field delimiter for --format delimited (default: \",\")")
	pf.StringVar(&globalFlags.Values, "values", "",
		"metric value typing for json/jsonl: string|number|decimal (default: string)")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max input files converted in parallel (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.StringVar(&globalFlags.DB, "db", "",
		"path of the local store (default: ~/.gaflat/gaflat.db)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show report/row counts and timing after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and store access (token never logged)")
}
