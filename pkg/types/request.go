// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// FetchRequest is the caller input to the fetch planner. When Fields is
// non-empty the planner runs in bundle mode and FieldID/TargetContract
// become hints only.
type FetchRequest struct {
	URL            string            `json:"url,omitempty"`
	URLs           []string          `json:"urls,omitempty"`
	FieldID        string            `json:"fieldId,omitempty"`
	Fields         []string          `json:"fields,omitempty"`
	ContentType    string            `json:"contentType,omitempty"`
	TargetContract string            `json:"targetContract,omitempty"`
	Contracts      []string          `json:"contracts,omitempty"`
	FormValues     map[string]string `json:"formValues,omitempty"`
}

// CleanFields returns the trimmed, non-empty field ids in request order.
func (r FetchRequest) CleanFields() []string {
	var out []string
	for _, f := range r.Fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// BundleMode reports whether the request should be planned as a bundle.
func (r FetchRequest) BundleMode() bool {
	return len(r.CleanFields()) > 0
}

// Candidates returns the ordered candidate URL list: URL first, then URLs,
// trimmed and deduplicated.
func (r FetchRequest) Candidates() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	add(r.URL)
	for _, u := range r.URLs {
		add(u)
	}
	return out
}

// PrimaryURL returns the URL field, or the first entry of URLs.
func (r FetchRequest) PrimaryURL() string {
	if u := strings.TrimSpace(r.URL); u != "" {
		return u
	}
	for _, u := range r.URLs {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return ""
}

// CleanContracts returns the trimmed, non-empty explicit contract names.
func (r FetchRequest) CleanContracts() []string {
	var out []string
	for _, c := range r.Contracts {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks caller input. A fieldId without a contentType cannot be
// classified in single-field mode, so it is rejected up front.
func (r FetchRequest) Validate() *ErrorDetail {
	if !r.BundleMode() &&
		strings.TrimSpace(r.FieldID) != "" &&
		strings.TrimSpace(r.ContentType) == "" {
		return &ErrorDetail{
			Code:    ErrValidation,
			Message: "contentType is required when fieldId is provided",
		}
	}
	return nil
}
