// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/metadata"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <url> [url...]",
	Short: "Fetch merged page-level metadata for candidate URLs",
	Long: `Metadata probes the candidate URLs in order and prints the first usable
merged record: title, description, thumbnail, and long-form content gathered
from text extraction, oEmbed, and meta-tag scraping.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	cfg := plannerConfig()
	f := metadata.New(httpClient(cfg.Metadata.HTTPConfig), secretSource, cfg.Metadata, nil)

	res := f.Fetch(context.Background(), args)
	if err := writeOutput(cmd, res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("no metadata could be extracted")
	}
	return nil
}
