// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/backend"
)

var articleCmd = &cobra.Command{
	Use:   "article <url> [url...]",
	Short: "Extract an article to markdown with staged inline images",
	Long: `Article converts the first extractable candidate to markdown through the
enrichment backend. Inline images are staged and referenced from the
markdown by attachment tokens.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArticle,
}

func init() {
	articleCmd.Flags().String("field", "", "target field id (default content)")

	rootCmd.AddCommand(articleCmd)
}

func runArticle(cmd *cobra.Command, args []string) error {
	field, _ := cmd.Flags().GetString("field")

	cfg := plannerConfig()
	c := backend.New(httpClient(cfg.Backend.HTTPConfig), secretSource, cfg.Backend, nil)

	res := c.ExtractArticle(context.Background(), args, field)
	if err := writeOutput(cmd, res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("no article could be extracted")
	}
	return nil
}
