// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// tavilyExtractBase is the third-party text-extraction endpoint. Declared
// as a var so tests can substitute an httptest server.
var tavilyExtractBase = "https://api.tavily.com/extract"

// extraction holds the text-extraction contribution for one URL.
type extraction struct {
	ok          bool
	title       string
	description string
	content     string
}

// fetchExtraction calls the text-extraction API. Without an API key the
// source contributes nothing; that is configuration, not failure.
func (f *Fetcher) fetchExtraction(ctx context.Context, src string) (extraction, types.DebugStep) {
	step := types.DebugStep{Event: "extract", URL: src}

	key := f.secrets.TavilyAPIKey()
	if key == "" {
		step.Err = "no extraction API key"
		return extraction{}, step
	}

	body, err := json.Marshal(map[string]string{"api_key": key, "url": src})
	if err != nil {
		step.Err = err.Error()
		return extraction{}, step
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyExtractBase, bytes.NewReader(body))
	if err != nil {
		step.Err = err.Error()
		return extraction{}, step
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		step.Err = err.Error()
		return extraction{}, step
	}
	defer resp.Body.Close()
	step.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return extraction{}, step
	}

	item, ok := decodeExtractionItem(resp.Body)
	if !ok {
		step.Err = "no extraction item in response"
		return extraction{}, step
	}
	return item, step
}

// decodeExtractionItem accepts both response shapes the extraction API has
// used: a results list (first item wins) and a flat object. Content may be
// under "content", "text", or "extracted_content".
func decodeExtractionItem(r io.Reader) (extraction, bool) {
	type wireItem struct {
		Title            string `json:"title"`
		Content          string `json:"content"`
		Text             string `json:"text"`
		ExtractedContent string `json:"extracted_content"`
		Description      string `json:"description"`
		MetaDescription  string `json:"meta_description"`
	}
	var wire struct {
		wireItem
		Results []wireItem `json:"results"`
	}
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return extraction{}, false
	}

	item := wire.wireItem
	if len(wire.Results) > 0 {
		item = wire.Results[0]
	}

	content := item.Content
	if content == "" {
		content = item.Text
	}
	if content == "" {
		content = item.ExtractedContent
	}
	description := item.Description
	if description == "" {
		description = item.MetaDescription
	}

	if item.Title == "" && content == "" && description == "" {
		return extraction{}, false
	}
	return extraction{ok: true, title: item.Title, description: description, content: content}, true
}
