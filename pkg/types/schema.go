// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
)

// mediaShapeRef marks an anyOf alternative as accepting staged media.
const mediaShapeRef = "#/$defs/StagedMedia"

// markdownAttachKind is the x-kind value for markdown fields that embed
// attachment tokens.
const markdownAttachKind = "markdownWithAttachTokens"

// Contract names understood by the planner and the contract registry.
const (
	ContractMedia          = "media"
	ContractArticle        = "article"
	ContractGeneric        = "generic"
	ContractThread         = "thread"
	ContractTranscript     = "transcript"
	ContractGeneratedMedia = "generated_media"
)

// GenerationConfig holds the prompt template and parameters declared on an
// AI-generated media field (x-generation on the field schema).
type GenerationConfig struct {
	PromptTemplate string `json:"promptTemplate"`
	Aspect         string `json:"aspect,omitempty"`
	Style          string `json:"style,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

// FieldSchema is the typed view of one property in a form schema. The wire
// format is JSON-Schema-like; decoding reduces it to explicit capability
// flags so classification never inspects raw JSON.
type FieldSchema struct {
	// MediaAlternative is true when an anyOf alternative references the
	// staged-media shape.
	MediaAlternative bool

	// MarkdownKind is true for markdown-with-attach-tokens fields.
	MarkdownKind bool

	// ExplicitContract is the trimmed x-contract value, if declared.
	ExplicitContract string

	// Generation is the x-generation config for AI media fields.
	Generation *GenerationConfig
}

// UnmarshalJSON decodes the wire form of a field schema: anyOf alternatives,
// x-kind, x-contract, and x-generation.
func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var wire struct {
		AnyOf []struct {
			Ref string `json:"$ref"`
		} `json:"anyOf"`
		XKind       string            `json:"x-kind"`
		XContract   string            `json:"x-contract"`
		XGeneration *GenerationConfig `json:"x-generation"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*f = FieldSchema{}
	for _, alt := range wire.AnyOf {
		if alt.Ref == mediaShapeRef {
			f.MediaAlternative = true
		}
	}
	f.MarkdownKind = wire.XKind == markdownAttachKind
	f.ExplicitContract = strings.TrimSpace(wire.XContract)
	f.Generation = wire.XGeneration
	return nil
}

// FormSchemaDocument is the form schema for one content subtype. Immutable
// once fetched; the schema cache hands out shared pointers.
type FormSchemaDocument struct {
	Subtype    string
	Version    json.RawMessage
	Properties map[string]FieldSchema
}

// UnmarshalJSON decodes the schema service response:
// { subtype, version, schema: { properties: {...} } }.
func (d *FormSchemaDocument) UnmarshalJSON(data []byte) error {
	var wire struct {
		Subtype string          `json:"subtype"`
		Version json.RawMessage `json:"version"`
		Schema  struct {
			Properties map[string]FieldSchema `json:"properties"`
		} `json:"schema"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.Subtype = wire.Subtype
	d.Version = wire.Version
	d.Properties = wire.Schema.Properties
	return nil
}

// Field returns the schema for fieldID. Safe on a nil receiver; a missing
// document or field yields a zero FieldSchema and false.
func (d *FormSchemaDocument) Field(fieldID string) (FieldSchema, bool) {
	if d == nil || d.Properties == nil {
		return FieldSchema{}, false
	}
	fs, ok := d.Properties[fieldID]
	return fs, ok
}
