// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contracts

import (
	"context"
	"strings"
	"time"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// GeneratedMediaContract produces AI-generated media for fields that declare
// a generation config in their schema.
type GeneratedMediaContract struct {
	Backend *backend.Client
}

// Name returns the contract name.
func (c *GeneratedMediaContract) Name() string { return types.ContractGeneratedMedia }

// Collect interpolates the field's prompt template with the current form
// values and asks the backend to generate. A field without a generation
// config contributes nothing.
func (c *GeneratedMediaContract) Collect(ctx context.Context, req Request) Partial {
	start := time.Now()
	p := Partial{}

	fs, ok := req.Schema.Field(req.FieldID)
	if !ok || fs.Generation == nil {
		p.Steps = append(p.Steps, types.DebugStep{
			Event: "generation_skipped",
			Err:   "no generation config for field",
		})
		p.setTiming("generatedMediaMs", start)
		return p
	}
	gen := fs.Generation

	prompt := interpolate(gen.PromptTemplate, req.FormValues)
	gr := c.Backend.GenerateImage(ctx, backend.GenerateRequest{
		Prompt:         prompt,
		FieldID:        req.FieldID,
		NegativePrompt: gen.NegativePrompt,
		Aspect:         gen.Aspect,
		Style:          gen.Style,
		Width:          gen.Width,
		Height:         gen.Height,
	})

	p.Steps = append(p.Steps, gr.Steps...)
	p.Generation = &types.Generation{
		Prompt:   prompt,
		Template: gen.PromptTemplate,
		Config:   gen,
		Success:  gr.OK,
		Error:    gr.Error,
	}
	if gr.OK {
		p.OK = true
		p.Media = gr.Attachments
	} else if gr.Error != nil {
		p.Errors = append(p.Errors, *gr.Error)
	}
	p.setTiming("generatedMediaMs", start)
	return p
}

// interpolate substitutes {key} placeholders with form values. A template
// referencing any key absent from values is returned untouched, so a
// half-filled form degrades to the author's template instead of a prompt
// with holes.
func interpolate(template string, values map[string]string) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		key := rest[open+1 : open+end]
		v, ok := values[key]
		if !ok {
			return template
		}
		b.WriteString(rest[:open])
		b.WriteString(v)
		rest = rest[open+end+1:]
	}
}
