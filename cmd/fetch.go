package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/gaflat/internal/pipeline"
	"github.com/derickschaefer/gaflat/internal/schema"
)

var (
	fetchRequest string
	fetchSave    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Call reports:batchGet and flatten the response",
	Long: `Post a batchGet request body to the Reporting API v4 and render the
response the same way 'convert' does.

The request body is read from --request (or stdin when --request is - or
omitted). An OAuth2 access token is required: pass --token, set GAFLAT_TOKEN,
or add token to config.json.

Use --save NAME to keep the raw response in the local store for later
'store get'.`,
	Example: `  gaflat fetch --request request.json
  gaflat fetch --request request.json --format json --values decimal
  gaflat fetch --request request.json --save weekly`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		opts, err := resolveOptions(deps.Config)
		if err != nil {
			return err
		}

		req, err := pipeline.ReadSource(fetchRequest, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(req.Raw) == 0 {
			return fmt.Errorf("empty request body from %s", req.Name)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		raw, err := deps.Client.BatchGet(ctx, req.Raw)
		if err != nil {
			return fmt.Errorf("batchGet: %w", err)
		}

		resp, err := schema.Parse(raw)
		if err != nil {
			return fmt.Errorf("batchGet response: %w", err)
		}

		if fetchSave != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			entry, err := deps.Store.PutResponse(fetchSave, "batchGet "+req.Name, raw, resp)
			if err != nil {
				return fmt.Errorf("storing response: %w", err)
			}
			deps.Log.WithField("name", entry.Name).WithField("rows", entry.Rows).Debug("response stored")
		}

		result := buildReportsResult("fetch", "batchGet", resp.Reports, started)
		result.Warnings = pageWarnings("batchGet", resp)
		return writeResult(cmd.OutOrStdout(), result, opts, deps.Config.Verbose)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchRequest, "request", "", "batchGet request body file (- for stdin)")
	fetchCmd.Flags().StringVar(&fetchSave, "save", "", "save the raw response in the local store under NAME")
}
