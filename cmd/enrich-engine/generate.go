// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/enrich-engine/internal/backend"
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate and stage an image from a prompt",
	Long: `Generate asks the enrichment backend to generate an image and stage it for
preview. Aspect, style, and dimension flags pass through to the generation
service when set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("field", "", "target field id (e.g. image)")
	generateCmd.Flags().String("aspect", "", "aspect hint (e.g. square, 16:9)")
	generateCmd.Flags().String("style", "", "stylistic guidance")
	generateCmd.Flags().String("negative-prompt", "", "negative prompt")
	generateCmd.Flags().Int("width", 0, "explicit width override")
	generateCmd.Flags().Int("height", 0, "explicit height override")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	field, _ := cmd.Flags().GetString("field")
	aspect, _ := cmd.Flags().GetString("aspect")
	style, _ := cmd.Flags().GetString("style")
	negative, _ := cmd.Flags().GetString("negative-prompt")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	cfg := plannerConfig()
	c := backend.New(httpClient(cfg.Backend.HTTPConfig), secretSource, cfg.Backend, nil)

	res := c.GenerateImage(context.Background(), backend.GenerateRequest{
		Prompt:         args[0],
		FieldID:        field,
		NegativePrompt: negative,
		Aspect:         aspect,
		Style:          style,
		Width:          width,
		Height:         height,
	})
	if err := writeOutput(cmd, res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("image generation failed")
	}
	return nil
}
