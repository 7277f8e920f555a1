package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/gaflat/internal/config"
	"github.com/derickschaefer/gaflat/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gaflat configuration",
	Long:  `Read and write gaflat configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Set token to an OAuth2 access token to use 'gaflat fetch'.")
		return nil
	},
}

var configGetShowSecrets bool

// configOut is the --format json shape of `config get`.
type configOut struct {
	Token       string  `json:"token"`
	Format      string  `json:"default_format"`
	Delimiter   string  `json:"delimiter"`
	Values      string  `json:"values"`
	Timeout     string  `json:"timeout"`
	Concurrency int     `json:"concurrency"`
	Rate        float64 `json:"rate"`
	BaseURL     string  `json:"base_url"`
	DBPath      string  `json:"db_path"`
	ConfigFile  string  `json:"config_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.Token)
		if err != nil {
			return err
		}

		token := cfg.RedactedToken()
		if configGetShowSecrets {
			token = cfg.Token
		}
		if token == "" {
			token = "(not set)"
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		out := configOut{
			Token:       token,
			Format:      cfg.Format,
			Delimiter:   cfg.Delimiter,
			Values:      cfg.Values,
			Timeout:     cfg.Timeout.String(),
			Concurrency: cfg.Concurrency,
			Rate:        cfg.Rate,
			BaseURL:     cfg.BaseURL,
			DBPath:      cfg.DBPath,
			ConfigFile:  src,
		}

		if globalFlags.Format == render.FormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		printKVTable(cmd.OutOrStdout(), [][]string{
			{"token", out.Token},
			{"default_format", out.Format},
			{"delimiter", strconv.Quote(out.Delimiter)},
			{"values", out.Values},
			{"timeout", out.Timeout},
			{"concurrency", strconv.Itoa(out.Concurrency)},
			{"rate", fmt.Sprintf("%.1f req/s", out.Rate)},
			{"base_url", out.BaseURL},
			{"db_path", out.DBPath},
			{"config_file", out.ConfigFile},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		f, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			tmpl := config.Template()
			f = &tmpl
		}

		if err := setConfigKey(f, key, val); err != nil {
			return err
		}
		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// setConfigKey assigns val to the config.json field named key.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "token":
		f.Token = val
	case "default_format", "format":
		if !render.ValidFormat(val) {
			return fmt.Errorf("unknown format %q: expected one of %v", val, render.Formats)
		}
		f.DefaultFormat = val
	case "delimiter":
		f.Delimiter = val
	case "values":
		if _, err := render.ParseValueMode(val); err != nil {
			return err
		}
		f.Values = val
	case "timeout":
		f.Timeout = val
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		f.Concurrency = n
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "base_url":
		f.BaseURL = val
	case "db_path":
		f.DBPath = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: token, default_format, delimiter, values, timeout, concurrency, rate, base_url, db_path", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show the token in plain text")
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}

// printKVTable renders a two-column key/value listing using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
