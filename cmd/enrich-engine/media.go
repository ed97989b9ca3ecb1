// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/internal/classify"
)

var mediaCmd = &cobra.Command{
	Use:   "media <url> [url...]",
	Short: "Stage media attachments from candidate URLs",
	Long: `Media asks the enrichment backend to stage the first candidate that yields
attachments. Direct staging runs first; page URLs fall back to embedded-image
extraction. The --field name supplies the staging kind hint.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMedia,
}

func init() {
	mediaCmd.Flags().String("field", "", "target field id (drives the kind hint)")
	mediaCmd.Flags().String("kind", "", "staging kind override: audio, video, or image")

	rootCmd.AddCommand(mediaCmd)
}

func runMedia(cmd *cobra.Command, args []string) error {
	field, _ := cmd.Flags().GetString("field")
	kind, _ := cmd.Flags().GetString("kind")
	if kind == "" {
		kind = classify.MediaKindHint(field)
	}

	cfg := plannerConfig()
	c := backend.New(httpClient(cfg.Backend.HTTPConfig), secretSource, cfg.Backend, nil)

	res := c.FetchMedia(context.Background(), args, field, kind)
	if err := writeOutput(cmd, res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("no media could be staged")
	}
	return nil
}
