// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves credentials and backend endpoints at call time.
// Each key is looked up in the environment first (upper-snake form of the
// key name), then in a directory of plain-text files where the filename is
// the key and the trimmed contents are the value.
//
// Known keys: backend-base-url, backend-ingest-token, tavily-api-key.
package secrets

import (
	"os"
	"path/filepath"
	"strings"
)

// Key names for the upstream services the engine talks to.
const (
	KeyBackendBaseURL = "backend-base-url"
	KeyBackendToken   = "backend-ingest-token"
	KeyTavilyAPIKey   = "tavily-api-key"
)

// Source resolves secret values lazily. Lookups happen on every call, not
// at process start, so late configuration is picked up without a restart.
type Source struct {
	dir string
}

// NewSource returns a Source backed by the environment and dir. An empty
// dir disables the file fallback.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Lookup returns the trimmed value for key, or "" when unset. Environment
// wins over the file fallback.
func (s *Source) Lookup(key string) string {
	if v := strings.TrimSpace(os.Getenv(envName(key))); v != "" {
		return v
	}
	if s == nil || s.dir == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// BackendBaseURL returns the enrichment backend base URL without a trailing
// slash, or "" when unconfigured.
func (s *Source) BackendBaseURL() string {
	return strings.TrimRight(s.Lookup(KeyBackendBaseURL), "/")
}

// BackendToken returns the internal auth token for backend calls.
func (s *Source) BackendToken() string {
	return s.Lookup(KeyBackendToken)
}

// TavilyAPIKey returns the text-extraction API key. An empty value disables
// that source only; it is not an error.
func (s *Source) TavilyAPIKey() string {
	return s.Lookup(KeyTavilyAPIKey)
}

// envName converts a key name to its environment variable form:
// "backend-base-url" becomes "BACKEND_BASE_URL".
func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
