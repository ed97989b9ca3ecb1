// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// Record is one fully merged page-level metadata record. Records are cached
// by source URL and must not be mutated after merging.
type Record struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Content     string             `json:"content,omitempty"`
	Thumbnail   string             `json:"thumbnail,omitempty"`
	Citations   []string           `json:"citations,omitempty"`
	Coverage    types.Coverage     `json:"coverage"`
	Provenance  types.Provenance   `json:"provenance"`
	Metadata    types.PageMetadata `json:"metadata"`
}

// Usable reports whether the record carries enough evidence to count as a
// successful fetch: at least one of title, content, or description.
func (r *Record) Usable() bool {
	return r.Title != "" || r.Content != "" || r.Description != ""
}

// merge combines the three source contributions for src into one record.
// Precedence is fixed per field; see the per-field pick lists.
func merge(src string, ext extraction, oe *types.OEmbed, page pageMeta, maxChars int) *Record {
	og := page.openGraph
	tw := page.twitterCard

	rec := &Record{
		Title: pickFirst(
			oeTitle(oe),
			og["og:title"],
			tw["twitter:title"],
			extTitle(ext),
			page.html.Title,
		),
		Description: pickFirst(
			og["og:description"],
			tw["twitter:description"],
			extDescription(ext),
			page.html.MetaDescription,
		),
		Thumbnail: pickFirst(
			oeThumbnail(oe),
			og["og:image"],
			tw["twitter:image"],
		),
		Citations: []string{src},
	}

	// Long-form content comes only from the extraction source.
	if ext.ok && ext.content != "" {
		content := ext.content
		if maxChars > 0 && len(content) > maxChars {
			// Back up to a rune boundary so the cap never splits a
			// multi-byte character.
			cut := maxChars
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut]
		}
		rec.Content = content
	}

	rec.Coverage = types.Coverage{
		Title:       rec.Title != "",
		Description: rec.Description != "",
		TextChars:   len(rec.Content),
	}

	canonical := src
	if og["og:url"] != "" {
		canonical = og["og:url"]
	}
	rec.Provenance = types.Provenance{
		CanonicalURL: canonical,
		URLsTried:    []string{src},
		SourcesUsed:  sourcesUsed(ext, oe, page),
	}

	rec.Metadata = types.PageMetadata{
		OEmbed:      oe,
		OpenGraph:   og,
		TwitterCard: tw,
	}
	if page.ok && (page.html.Title != "" || page.html.MetaDescription != "") {
		h := page.html
		rec.Metadata.HTML = &h
	}
	return rec
}

func sourcesUsed(ext extraction, oe *types.OEmbed, page pageMeta) []string {
	var used []string
	if ext.ok {
		used = append(used, "tavily")
	}
	if oe != nil {
		used = append(used, "oembed")
	}
	if len(page.openGraph) > 0 {
		used = append(used, "opengraph")
	}
	if len(page.twitterCard) > 0 {
		used = append(used, "twitterCard")
	}
	if page.ok {
		used = append(used, "html")
	}
	return used
}

// pickFirst returns the first non-blank value, trimmed.
func pickFirst(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func oeTitle(oe *types.OEmbed) string {
	if oe == nil {
		return ""
	}
	return oe.Title
}

func oeThumbnail(oe *types.OEmbed) string {
	if oe == nil {
		return ""
	}
	return oe.ThumbnailURL
}

func extTitle(ext extraction) string {
	if !ext.ok {
		return ""
	}
	return ext.title
}

func extDescription(ext extraction) string {
	if !ext.ok {
		return ""
	}
	return ext.description
}
