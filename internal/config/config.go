// Package config handles loading and resolving gaflat configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--token, --db, ...)
//  2. Environment variables prefixed GAFLAT_ (a .env file is loaded first)
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "delimited"
	DefaultDelimiter   = ","
	DefaultValues      = "string"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 5.0
	DefaultBaseURL     = "https://analyticsreporting.googleapis.com/v4/"
	EnvPrefix          = "GAFLAT"
	EnvToken           = "GAFLAT_TOKEN"
	EnvDBPath          = "GAFLAT_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	Token         string  `json:"token" mapstructure:"token"`
	DefaultFormat string  `json:"default_format" mapstructure:"default_format"`
	Delimiter     string  `json:"delimiter" mapstructure:"delimiter"`
	Values        string  `json:"values" mapstructure:"values"`
	Timeout       string  `json:"timeout" mapstructure:"timeout"`
	Concurrency   int     `json:"concurrency" mapstructure:"concurrency"`
	Rate          float64 `json:"rate" mapstructure:"rate"`
	BaseURL       string  `json:"base_url" mapstructure:"base_url"`
	DBPath        string  `json:"db_path" mapstructure:"db_path"`
}

// keys lists every File field for env binding.
var keys = []string{"token", "default_format", "delimiter", "values", "timeout", "concurrency", "rate", "base_url", "db_path"}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Token       string
	Format      string
	Delimiter   string
	Values      string
	Timeout     time.Duration
	Concurrency int
	Rate        float64
	BaseURL     string
	DBPath      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagToken is the value of --token (empty string if not set).
func Load(flagToken string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetDefault("default_format", DefaultFormat)
	v.SetDefault("delimiter", DefaultDelimiter)
	v.SetDefault("values", DefaultValues)
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("rate", DefaultRate)
	v.SetDefault("base_url", DefaultBaseURL)

	cfg := &Config{}

	// Layer 1: config.json (lowest priority)
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", DefaultConfigFile, err)
		}
		cfg.ConfigPath = path
	}

	// Layer 2: environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", k, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyFile(cfg, &f)

	// Layer 3: CLI flag (highest priority)
	if flagToken != "" {
		cfg.Token = flagToken
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".gaflat", "gaflat.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if fields needed to call the API are missing.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(
			"access token not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        gaflat --token YOUR_TOKEN ...\n" +
				"  2. Environment:     export GAFLAT_TOKEN=YOUR_TOKEN\n" +
				"  3. config.json:     {\"token\": \"YOUR_TOKEN\"}\n\n" +
				"An OAuth2 access token with the analytics.readonly scope is required,\n" +
				"e.g. from: gcloud auth application-default print-access-token",
		)
	}
	return nil
}

// RedactedToken returns the token with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedToken() string {
	if len(c.Token) <= 4 {
		return "****"
	}
	return c.Token[:2] + "****" + c.Token[len(c.Token)-2:]
}

// applyFile copies decoded values into cfg, skipping zero/empty fields.
func applyFile(cfg *Config, f *File) {
	if f.Token != "" {
		cfg.Token = f.Token
	}
	cfg.Format = f.DefaultFormat
	cfg.Delimiter = f.Delimiter
	cfg.Values = f.Values
	cfg.Timeout = DefaultTimeout
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	cfg.Concurrency = DefaultConcurrency
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	cfg.Rate = DefaultRate
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	cfg.BaseURL = f.BaseURL
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `gaflat config init`.
func Template() File {
	return File{
		Token:         "",
		DefaultFormat: DefaultFormat,
		Delimiter:     DefaultDelimiter,
		Values:        DefaultValues,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		BaseURL:       DefaultBaseURL,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
