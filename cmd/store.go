package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/gaflat/internal/render"
	"github.com/derickschaefer/gaflat/internal/schema"
	"github.com/derickschaefer/gaflat/internal/store"
	"github.com/derickschaefer/gaflat/internal/util"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage responses saved in the local database",
	Long: `Commands for the local bbolt database of saved batchGet responses.

Responses are saved with 'gaflat convert --store NAME' or
'gaflat fetch --save NAME' and stay until you delete or clear them.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved responses",
	Example: `  gaflat store list
  gaflat store list --format csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		entries, err := deps.Store.ListResponses()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		headers := []string{"NAME", "SAVED AT", "REPORTS", "ROWS", "SIZE", "SOURCE"}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.Name,
				e.SavedAt.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(e.Reports),
				strconv.Itoa(e.Rows),
				util.HumanBytes(int64(e.Bytes)),
				e.Source,
			})
		}

		// Listings default to a table regardless of default_format.
		format := globalFlags.Format
		if format == "" {
			format = render.FormatTable
		}
		if !render.ValidFormat(format) {
			return fmt.Errorf("unknown format %q: expected one of %v", format, render.Formats)
		}
		if format == render.FormatTable {
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved responses.")
				fmt.Fprintln(cmd.OutOrStdout(), "  Use: gaflat convert FILE --store NAME")
				return nil
			}
			printSimpleTable(cmd.OutOrStdout(), headers, func(add func(...string)) {
				for _, r := range rows {
					add(r...)
				}
			})
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d responses  •  %s\n", len(entries), deps.Store.Path())
			return nil
		}

		return writeResult(cmd.OutOrStdout(), buildTableResult("store list", headers, rows),
			render.Options{Format: format}, deps.Config.Verbose)
	},
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetCmd = &cobra.Command{
	Use:   "get <NAME>",
	Short: "Flatten a saved response",
	Example: `  gaflat store get weekly
  gaflat store get weekly --format json --values number`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		opts, err := resolveOptions(deps.Config)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		entry, raw, err := deps.Store.GetResponse(args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved response named %q\n\n  Use: gaflat store list", args[0])
		}
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		resp, err := schema.Parse(raw)
		if err != nil {
			return fmt.Errorf("saved response %s: %w", entry.Name, err)
		}

		result := buildReportsResult("store get "+entry.Name, "store:"+entry.Name, resp.Reports, started)
		result.Warnings = pageWarnings(entry.Name, resp)
		return writeResult(cmd.OutOrStdout(), result, opts, deps.Config.Verbose)
	},
}

// ─── store delete ─────────────────────────────────────────────────────────────

var storeDeleteCmd = &cobra.Command{
	Use:     "delete <NAME...>",
	Short:   "Delete saved responses",
	Example: `  gaflat store delete weekly monthly`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var errs util.MultiError
		for _, name := range args {
			if err := deps.Store.DeleteResponse(name); err != nil {
				errs.Add(err)
				continue
			}
			if !globalFlags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", name)
			}
		}
		return errs.Err()
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show entry counts and sizes for each bucket",
	Example: `  gaflat store stats`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ENTRIES", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, strconv.Itoa(s.Count), util.HumanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var storeClearAll bool

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved response",
	Long: `Delete every saved response.

bbolt does not shrink the database file after clearing; freed pages are
reused by later writes.`,
	Example: `  gaflat store clear --all`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll {
			return fmt.Errorf("refusing to clear without --all")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.ClearAll(); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all saved responses")
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeDeleteCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "confirm clearing every saved response")
}
