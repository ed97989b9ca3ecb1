// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/evidencestore"
	"github.com/pdiddy/enrich-engine/internal/planner"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Plan contracts and fetch a merged evidence bundle",
	Long: `Fetch plans retrieval contracts for the requested fields and executes them
against the enrichment backend and public metadata sources. With --fields it
runs in bundle mode: every field is classified, the contract union executes
with generic last, and contributions merge into one bundle. Without --fields
a single contract resolves and runs.

Use --form key=value to supply form values for prompt interpolation, and
--record to append the completed fetch to the local audit store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("url", "", "primary candidate URL (or pass as positional argument)")
	fetchCmd.Flags().StringSlice("urls", nil, "additional candidate URLs")
	fetchCmd.Flags().String("field", "", "target field id")
	fetchCmd.Flags().StringSlice("fields", nil, "field ids for bundle mode")
	fetchCmd.Flags().String("content-type", "", "content subtype for schema lookup (e.g. videos, recipes)")
	fetchCmd.Flags().String("target-contract", "", "contract override for single-field mode")
	fetchCmd.Flags().StringSlice("contracts", nil, "explicit contracts to union into the bundle plan")
	fetchCmd.Flags().StringSlice("form", nil, "form values for prompt interpolation (key=value)")
	fetchCmd.Flags().Bool("record", false, "append the completed fetch to the audit store")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	req, err := fetchRequestFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if len(req.Candidates()) == 0 && len(req.CleanFields()) == 0 {
		return fmt.Errorf("provide a URL or --fields")
	}

	cfg := plannerConfig()
	p := planner.New(httpClient(cfg.Backend.HTTPConfig), secretSource, cfg, nil)
	bundle := p.Fetch(cmd.Context(), req)

	if record, _ := cmd.Flags().GetBool("record"); record {
		if err := recordFetch(cmd.Context(), cfg, req, bundle); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit record failed: %v\n", err)
		}
	}

	if err := writeOutput(cmd, bundle); err != nil {
		return err
	}
	if !bundle.OK {
		return fmt.Errorf("fetch produced no usable evidence")
	}
	return nil
}

func fetchRequestFromFlags(cmd *cobra.Command, args []string) (types.FetchRequest, error) {
	url, _ := cmd.Flags().GetString("url")
	if url == "" && len(args) > 0 {
		url = args[0]
	}
	urls, _ := cmd.Flags().GetStringSlice("urls")
	field, _ := cmd.Flags().GetString("field")
	fields, _ := cmd.Flags().GetStringSlice("fields")
	contentType, _ := cmd.Flags().GetString("content-type")
	target, _ := cmd.Flags().GetString("target-contract")
	contracts, _ := cmd.Flags().GetStringSlice("contracts")
	formPairs, _ := cmd.Flags().GetStringSlice("form")

	formValues, err := parseFormValues(formPairs)
	if err != nil {
		return types.FetchRequest{}, err
	}

	return types.FetchRequest{
		URL:            url,
		URLs:           urls,
		FieldID:        field,
		Fields:         fields,
		ContentType:    contentType,
		TargetContract: target,
		Contracts:      contracts,
		FormValues:     formValues,
	}, nil
}

func recordFetch(ctx context.Context, cfg types.PlannerConfig, req types.FetchRequest, bundle *types.EvidenceBundle) error {
	store, err := evidencestore.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, req, bundle)
}
