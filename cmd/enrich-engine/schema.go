// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/classify"
	"github.com/pdiddy/enrich-engine/internal/schemacache"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <subtype>",
	Short: "Fetch a form schema and show how its fields classify",
	Long: `Schema loads the form schema for a content subtype from the backend and
prints each field with its retrieval mode and inferred contract. Useful for
checking how a subtype's fields will be planned before running fetch.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

// schemaField is the per-field classification report.
type schemaField struct {
	Field            string `json:"field" yaml:"field"`
	Mode             string `json:"mode" yaml:"mode"`
	Contract         string `json:"contract,omitempty" yaml:"contract,omitempty"`
	ExplicitContract string `json:"explicitContract,omitempty" yaml:"explicitContract,omitempty"`
	Generation       bool   `json:"generation,omitempty" yaml:"generation,omitempty"`
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg := plannerConfig()
	cache := schemacache.New(httpClient(cfg.Schema.HTTPConfig), secretSource, cfg.Schema, nil)

	doc, err := cache.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	report := struct {
		Subtype string        `json:"subtype" yaml:"subtype"`
		Fields  []schemaField `json:"fields" yaml:"fields"`
	}{Subtype: doc.Subtype}

	for _, name := range names {
		fs := doc.Properties[name]
		contract := classify.InferContract(doc, name)
		report.Fields = append(report.Fields, schemaField{
			Field:            name,
			Mode:             string(classify.FieldMode(doc, name)),
			Contract:         contract,
			ExplicitContract: fs.ExplicitContract,
			Generation:       fs.Generation != nil,
		})
	}
	return writeOutput(cmd, report)
}
