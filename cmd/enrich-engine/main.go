// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the enrich-engine CLI. The planner
// and its component clients do the work; the CLI is a thin shell that
// builds requests from flags and prints evidence bundles.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretSource resolves backend credentials at call time.
var secretSource *secrets.Source

// rootCmd is the base command for the enrich-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "enrich-engine",
	Short: "Content enrichment planning and evidence fetching",
	Long: `enrich-engine turns a URL plus a set of form fields into a merged evidence
bundle: staged media, extracted articles, generated images, and page-level
metadata. Field schemas decide which retrieval contract each field gets;
contracts execute against the enrichment backend and public metadata
sources with per-source graceful degradation.

Each operation is a subcommand: fetch runs the full planner, while schema,
metadata, media, article, and generate exercise one component at a time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err == nil {
			fmt.Fprintln(os.Stderr, "Loaded .env")
		}
		dir, _ := cmd.Flags().GetString("secrets-dir")
		secretSource = secrets.NewSource(dir)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./enrich-engine.yaml or ~/.config/enrich-engine/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of one-file-per-key secrets")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "output format: json or yaml")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("enrich-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "enrich-engine"))
		}
	}

	viper.SetEnvPrefix("ENRICH_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// plannerConfig applies config file overrides on top of the defaults.
func plannerConfig() types.PlannerConfig {
	cfg := types.DefaultPlannerConfig()
	if v := viper.GetDuration("schema.timeout"); v > 0 {
		cfg.Schema.Timeout = v
	}
	if v := viper.GetDuration("metadata.timeout"); v > 0 {
		cfg.Metadata.Timeout = v
	}
	if v := viper.GetInt("metadata.max_content_chars"); v > 0 {
		cfg.Metadata.MaxContentChars = v
	}
	if v := viper.GetDuration("backend.timeout"); v > 0 {
		cfg.Backend.Timeout = v
	}
	if v := viper.GetInt("backend.max_images"); v > 0 {
		cfg.Backend.MaxImages = v
	}
	if v := viper.GetString("store.dir"); v != "" {
		cfg.Store.Dir = v
	}
	return cfg
}

// httpClient returns a client with the given per-request timeout.
func httpClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// writeOutput prints v to stdout in the requested format.
func writeOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml output: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	case "json", "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q: use json or yaml", format)
	}
}

// parseFormValues converts key=value pairs into a form value map.
func parseFormValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form value %q: expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
