// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps form fields to retrieval contracts. Field mode
// classification is pure and total; contract inference applies explicit
// schema hints before domain heuristics, in a fixed priority order.
package classify

import (
	"net/url"
	"strings"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// Mode is the retrieval mode of a single field.
type Mode string

const (
	ModeMedia    Mode = "media"
	ModeMarkdown Mode = "markdown"
	ModeGeneral  Mode = "general"
)

// FieldMode classifies a field by its schema fragment. A missing document
// or field yields ModeGeneral; the function never fails.
func FieldMode(doc *types.FormSchemaDocument, fieldID string) Mode {
	fs, ok := doc.Field(fieldID)
	if !ok {
		return ModeGeneral
	}
	if fs.MediaAlternative {
		return ModeMedia
	}
	if fs.MarkdownKind {
		return ModeMarkdown
	}
	return ModeGeneral
}

// InferContract resolves a field to a contract name from schema evidence
// alone: an explicit x-contract wins, otherwise the field mode maps
// media→media and markdown→article. General fields return "" so callers
// can apply domain heuristics before falling back to generic.
func InferContract(doc *types.FormSchemaDocument, fieldID string) string {
	fs, ok := doc.Field(fieldID)
	if ok && fs.ExplicitContract != "" {
		return fs.ExplicitContract
	}
	switch FieldMode(doc, fieldID) {
	case ModeMedia:
		return types.ContractMedia
	case ModeMarkdown:
		return types.ContractArticle
	}
	return ""
}

// InferSingle resolves the contract for a single-field request. Resolution
// order, highest first: caller override, explicit x-contract, reddit thread
// heuristic, field mode mapping, generic.
func InferSingle(doc *types.FormSchemaDocument, fieldID, pageURL, contentType, target string) string {
	if target = strings.TrimSpace(target); target != "" {
		return target
	}
	if fs, ok := doc.Field(fieldID); ok && fs.ExplicitContract != "" {
		return fs.ExplicitContract
	}
	if threadContent(Host(pageURL), strings.TrimSpace(contentType)) {
		return types.ContractThread
	}
	switch FieldMode(doc, fieldID) {
	case ModeMedia:
		return types.ContractMedia
	case ModeMarkdown:
		return types.ContractArticle
	}
	return types.ContractGeneric
}

// Plan is the contract plan for one bundle execution.
type Plan struct {
	// ByField maps each requested field id to its resolved contract.
	ByField map[string]string

	// Contracts is the unique, order-preserving union of resolved
	// contracts. It always includes generic: page-level metadata supplies
	// defaults regardless of what else runs.
	Contracts []string
}

// PlanBundle resolves every field of a bundle. Heuristic priority when the
// schema is silent, highest first: reddit thread content, YouTube video
// media (only when the field itself classifies as media), then generic.
func PlanBundle(doc *types.FormSchemaDocument, fields []string, pageURL, contentType string) Plan {
	plan := Plan{ByField: make(map[string]string, len(fields))}
	host := Host(pageURL)
	contentType = strings.TrimSpace(contentType)

	for _, fid := range fields {
		c := InferContract(doc, fid)
		if c == "" && threadContent(host, contentType) {
			c = types.ContractThread
		}
		if c == "" && contentType == "videos" && youTubeHost(host) && FieldMode(doc, fid) == ModeMedia {
			c = types.ContractMedia
		}
		if c == "" {
			c = types.ContractGeneric
		}
		plan.ByField[fid] = c
		plan.addContract(c)
	}

	plan.addContract(types.ContractGeneric)
	return plan
}

func (p *Plan) addContract(name string) {
	for _, c := range p.Contracts {
		if c == name {
			return
		}
	}
	p.Contracts = append(p.Contracts, name)
}

// threadContent reports whether the page is a reddit thread being treated
// as tweet-like content.
func threadContent(host, contentType string) bool {
	if !strings.Contains(host, "reddit.com") {
		return false
	}
	return contentType == "tweets" || contentType == "reddit_thread"
}

// youTubeHost matches youtube.com subdomains and the youtu.be shortener.
func youTubeHost(host string) bool {
	return strings.Contains(host, "youtube.com") || host == "youtu.be"
}

// Host returns the lowercased host of rawURL, or "" when unparseable.
func Host(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// InferSubtype guesses the content subtype from the requested field names.
// Markdown content fields are common to many subtypes, so they never
// decide; an empty return means the subtype stays unresolved.
func InferSubtype(fields []string) string {
	low := make(map[string]bool, len(fields))
	for _, f := range fields {
		low[strings.ToLower(strings.TrimSpace(f))] = true
	}
	switch {
	case low["videofile"] || low["poster"]:
		return "videos"
	case low["image"]:
		return "images"
	case low["ingredients"] || low["steps"]:
		return "recipes"
	case low["replies"]:
		return "tweets"
	}
	return ""
}

// MediaKindHint derives a staging kind from the field name. Unknown names
// return "" and leave the backend's own classification in place.
func MediaKindHint(fieldID string) string {
	low := strings.ToLower(strings.TrimSpace(fieldID))
	switch {
	case strings.Contains(low, "audio"):
		return "audio"
	case strings.Contains(low, "video"):
		return "video"
	case strings.Contains(low, "image"), strings.Contains(low, "cover"):
		return "image"
	}
	return ""
}
