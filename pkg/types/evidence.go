// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ErrorCode classifies a structured failure.
type ErrorCode string

const (
	// ErrValidation means the caller input was malformed.
	ErrValidation ErrorCode = "validation"
	// ErrConfig means required configuration was absent.
	ErrConfig ErrorCode = "config"
	// ErrBackend means an upstream service returned a non-success status.
	ErrBackend ErrorCode = "backend_error"
	// ErrProtocol means an upstream response did not match the expected shape.
	ErrProtocol ErrorCode = "protocol"
	// ErrNetwork means a transport-level failure (timeout, refused connection).
	ErrNetwork ErrorCode = "network"
	// ErrNotFound means all strategies were exhausted without usable evidence.
	ErrNotFound ErrorCode = "not_found"
)

// ErrorDetail carries enough structured context for a caller to pick an
// alternate strategy: upstream status, request id, and a truncated body.
type ErrorDetail struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	URL         string    `json:"url,omitempty"`
	Status      int       `json:"status,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
	BodyPreview string    `json:"bodyPreview,omitempty"`
}

// StagedMedia describes one staged asset produced by the media backend.
// Not mutated after staging, except kind coercion for audio fields.
type StagedMedia struct {
	TempURL    string `json:"tempUrl,omitempty"`
	StagedPath string `json:"stagedPath,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Filesize   int64  `json:"filesize,omitempty"`
	SourceURL  string `json:"sourceUrl,omitempty"`
}

// Attachment pairs a staged asset with an optional token id referenced from
// markdown content.
type Attachment struct {
	TokenID string      `json:"tokenId,omitempty"`
	Staged  StagedMedia `json:"staged"`
}

// Article holds extracted markdown plus the inline attachments staged for it.
type Article struct {
	Markdown    string       `json:"markdown"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Generation reports the outcome of an AI media generation, including the
// interpolated prompt and the template it came from.
type Generation struct {
	Prompt   string            `json:"prompt"`
	Template string            `json:"template"`
	Config   *GenerationConfig `json:"config,omitempty"`
	Success  bool              `json:"success"`
	Error    *ErrorDetail      `json:"error,omitempty"`
}

// DebugStep is one entry in the ordered execution trace.
type DebugStep struct {
	Event     string `json:"event"`
	URL       string `json:"url,omitempty"`
	Status    int    `json:"status,omitempty"`
	Err       string `json:"err,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

// Debug wraps the ordered step log.
type Debug struct {
	Steps []DebugStep `json:"steps"`
}

// OEmbed is the subset of an oEmbed payload the merger consumes.
type OEmbed struct {
	Title        string `json:"title,omitempty"`
	Type         string `json:"type,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// HTMLMeta holds plain-HTML fallbacks scraped from the page.
type HTMLMeta struct {
	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
}

// PageMetadata groups the raw per-source page metadata for caller inspection.
type PageMetadata struct {
	OEmbed      *OEmbed           `json:"oembed,omitempty"`
	OpenGraph   map[string]string `json:"openGraph,omitempty"`
	TwitterCard map[string]string `json:"twitterCard,omitempty"`
	HTML        *HTMLMeta         `json:"html,omitempty"`
}

// Provenance records where evidence came from.
type Provenance struct {
	CanonicalURL string   `json:"canonicalUrl,omitempty"`
	PrimaryURL   string   `json:"primaryUrl,omitempty"`
	URLsTried    []string `json:"urlsTried,omitempty"`
	SourcesUsed  []string `json:"sourcesUsed,omitempty"`
}

// Merge overwrites p's fields with the non-empty fields of other. Later
// contracts win on shared keys.
func (p *Provenance) Merge(other Provenance) {
	if other.CanonicalURL != "" {
		p.CanonicalURL = other.CanonicalURL
	}
	if other.PrimaryURL != "" {
		p.PrimaryURL = other.PrimaryURL
	}
	if len(other.URLsTried) > 0 {
		p.URLsTried = other.URLsTried
	}
	if len(other.SourcesUsed) > 0 {
		p.SourcesUsed = other.SourcesUsed
	}
}

// Coverage summarizes how much evidence an operation produced.
type Coverage struct {
	Title        bool `json:"title,omitempty"`
	Description  bool `json:"description,omitempty"`
	TextChars    int  `json:"textChars,omitempty"`
	ImagesFound  int  `json:"imagesFound,omitempty"`
	ImagesStaged int  `json:"imagesStaged,omitempty"`
	Tried        int  `json:"tried,omitempty"`
	Succeeded    int  `json:"succeeded,omitempty"`
}

// EvidenceBundle is the merged response from one planner run. Scalar keys
// follow last-writer-wins across contract execution order; citations are an
// order-preserving union.
type EvidenceBundle struct {
	OK               bool                    `json:"ok"`
	Title            string                  `json:"title,omitempty"`
	Description      string                  `json:"description,omitempty"`
	Thumbnail        string                  `json:"thumbnail,omitempty"`
	ContentMarkdown  string                  `json:"contentMarkdown,omitempty"`
	Article          *Article                `json:"article,omitempty"`
	Generation       *Generation             `json:"generation,omitempty"`
	Metadata         *PageMetadata           `json:"metadata,omitempty"`
	Citations        []string                `json:"citations,omitempty"`
	Provenance       Provenance              `json:"provenance"`
	Coverage         *Coverage               `json:"coverage,omitempty"`
	Media            []Attachment            `json:"media,omitempty"`
	MediaByField     map[string][]Attachment `json:"mediaByField,omitempty"`
	PlannedContracts map[string]string       `json:"plannedContracts,omitempty"`
	Errors           []ErrorDetail           `json:"errors,omitempty"`
	Debug            Debug                   `json:"debug"`
	Timings          map[string]int64        `json:"timings,omitempty"`
}

// AddCitations appends urls not already present, preserving first-seen order.
func (b *EvidenceBundle) AddCitations(urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		dup := false
		for _, existing := range b.Citations {
			if existing == u {
				dup = true
				break
			}
		}
		if !dup {
			b.Citations = append(b.Citations, u)
		}
	}
}

// Step appends one entry to the debug trace.
func (b *EvidenceBundle) Step(s DebugStep) {
	b.Debug.Steps = append(b.Debug.Steps, s)
}

// SetTiming records an operation duration in milliseconds.
func (b *EvidenceBundle) SetTiming(key string, ms int64) {
	if b.Timings == nil {
		b.Timings = make(map[string]int64)
	}
	b.Timings[key] = ms
}
