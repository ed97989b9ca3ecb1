// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/evidencestore"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded fetches from the audit store",
	Long: `History lists fetches recorded with fetch --record, newest first. Filter
to one URL with --url; --full includes the stored evidence bundles.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum entries (0 = use default)")
	historyCmd.Flags().String("url", "", "filter by fetched URL")
	historyCmd.Flags().Bool("full", false, "include full evidence bundles")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	url, _ := cmd.Flags().GetString("url")
	full, _ := cmd.Flags().GetBool("full")

	cfg := plannerConfig()
	store, err := evidencestore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var entries []evidencestore.Entry
	if url != "" {
		entries, err = store.ByURL(context.Background(), url, limit)
	} else {
		entries, err = store.Recent(context.Background(), limit)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No recorded fetches.")
		return nil
	}
	if !full {
		for i := range entries {
			entries[i].Bundle = nil
		}
	}
	return writeOutput(cmd, entries)
}
