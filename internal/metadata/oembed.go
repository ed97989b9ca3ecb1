// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// noembedBase is the public oEmbed aggregator used when discovery fails.
// Declared as a var so tests can substitute an httptest server.
var noembedBase = "https://noembed.com"

// fetchOEmbed resolves an oEmbed payload for src: first via the page's own
// discovery link, then via the public aggregator.
func (f *Fetcher) fetchOEmbed(ctx context.Context, src string) (*types.OEmbed, types.DebugStep) {
	step := types.DebugStep{Event: "oembed", URL: src}

	if oe := f.discoverOEmbed(ctx, src); oe != nil {
		return oe, step
	}

	oe, err := f.noembedFallback(ctx, src)
	if err != nil {
		step.Err = err.Error()
		return nil, step
	}
	return oe, step
}

// discoverOEmbed fetches the page, looks for a JSON oEmbed discovery link,
// and fetches that endpoint. Any failure returns nil; the aggregator
// fallback runs next.
func (f *Fetcher) discoverOEmbed(ctx context.Context, src string) *types.OEmbed {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil
	}

	href := parseOEmbedLink(resp.Body)
	if href == "" {
		return nil
	}
	// Protocol-relative discovery links inherit the page scheme.
	if strings.HasPrefix(href, "//") {
		scheme := "https"
		if u, err := url.Parse(src); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		}
		href = scheme + ":" + href
	}

	endpointReq, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil
	}
	endpointReq.Header.Set("User-Agent", f.cfg.UserAgent)

	endpointResp, err := f.client.Do(endpointReq)
	if err != nil {
		return nil
	}
	defer endpointResp.Body.Close()
	if endpointResp.StatusCode >= 400 {
		return nil
	}

	var oe types.OEmbed
	if err := json.NewDecoder(endpointResp.Body).Decode(&oe); err != nil {
		return nil
	}
	return &oe
}

// noembedFallback asks the public aggregator. Noembed reports failure as a
// 200 with an "error" key.
func (f *Fetcher) noembedFallback(ctx context.Context, src string) (*types.OEmbed, error) {
	reqURL := noembedBase + "/embed?url=" + url.QueryEscape(src)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("oembed aggregator returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		types.OEmbed
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("noembed: %s", payload.Error)
	}
	return &payload.OEmbed, nil
}

// parseOEmbedLink finds <link rel="alternate" type="application/json+oembed">
// (or the bare "application/json oembed" variant) and returns its href.
func parseOEmbedLink(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var href string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if href != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "link" {
			typ := strings.ToLower(attr(n, "type"))
			if typ == "application/json+oembed" || typ == "application/json oembed" {
				href = attr(n, "href")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return href
}
