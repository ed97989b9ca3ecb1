// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "enrich-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SchemaConfig holds settings for the form schema cache.
type SchemaConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries bounds the retry attempts for a schema fetch (default 3).
	// Schema load is foundational to classification, so it retries where
	// page-level fetches advance to the next candidate instead.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CacheSize bounds the number of memoized schema documents (default 64).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL expires memoized schema documents (default 30m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// MetadataConfig holds settings for page-level metadata gathering. The
// timeout here is the short per-source budget; a slow page must not stall
// bundle completion.
type MetadataConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxContentChars caps extracted long-form content (default 12000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars"`

	// CacheSize bounds the merged-metadata cache (default 1024 URLs).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL expires cached metadata records (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// BackendConfig holds settings for enrichment backend calls. The backend
// performs staging work, so its budget is much longer than page fetches.
type BackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxImages is the inline image budget for article extraction (default 6).
	MaxImages int `json:"max_images" yaml:"max_images"`

	// FallbackImages is the image budget when media staging falls back to
	// embedded-image extraction (default 4).
	FallbackImages int `json:"fallback_images" yaml:"fallback_images"`
}

// StoreConfig holds settings for the local evidence store.
type StoreConfig struct {
	// Enabled turns on recording of completed fetches.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the base directory for the store database (default ".enrich").
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default history query limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PlannerConfig groups all component configurations for the fetch planner.
type PlannerConfig struct {
	Schema   SchemaConfig   `json:"schema" yaml:"schema"`
	Metadata MetadataConfig `json:"metadata" yaml:"metadata"`
	Backend  BackendConfig  `json:"backend" yaml:"backend"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}

// DefaultPlannerConfig returns the documented defaults for every component.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Schema: SchemaConfig{
			HTTPConfig: HTTPConfig{Timeout: 15 * time.Second, UserAgent: DefaultUserAgent},
			MaxRetries: 3,
			CacheSize:  64,
			CacheTTL:   30 * time.Minute,
		},
		Metadata: MetadataConfig{
			HTTPConfig:      HTTPConfig{Timeout: 8 * time.Second, UserAgent: DefaultUserAgent},
			MaxContentChars: 12000,
			CacheSize:       1024,
			CacheTTL:        time.Hour,
		},
		Backend: BackendConfig{
			HTTPConfig:     HTTPConfig{Timeout: 45 * time.Second, UserAgent: DefaultUserAgent},
			MaxImages:      6,
			FallbackImages: 4,
		},
		Store: StoreConfig{
			Dir:        ".enrich",
			MaxResults: 20,
		},
	}
}

// DefaultUserAgent identifies enrich-engine to upstream services.
const DefaultUserAgent = "enrich-engine/0.1"
