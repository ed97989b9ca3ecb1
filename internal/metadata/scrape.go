// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// ogProps and twitterNames are the meta tags the scraper collects.
var (
	ogProps      = map[string]bool{"og:title": true, "og:description": true, "og:image": true, "og:url": true}
	twitterNames = map[string]bool{"twitter:title": true, "twitter:description": true, "twitter:image": true}
)

// pageMeta holds the scraped OpenGraph, Twitter Card, and plain-HTML tags.
type pageMeta struct {
	ok          bool
	openGraph   map[string]string
	twitterCard map[string]string
	html        types.HTMLMeta
}

// scrapePage fetches src and collects its metadata tags. Failures return a
// zero pageMeta; the scrape is one of three best-effort sources.
func (f *Fetcher) scrapePage(ctx context.Context, src string) (pageMeta, types.DebugStep) {
	step := types.DebugStep{Event: "scrape", URL: src}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		step.Err = err.Error()
		return pageMeta{}, step
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		step.Err = err.Error()
		return pageMeta{}, step
	}
	defer resp.Body.Close()
	step.Status = resp.StatusCode
	if resp.StatusCode >= 400 {
		return pageMeta{}, step
	}

	meta := parseMetaTags(resp.Body)
	return meta, step
}

// parseMetaTags walks the HTML tree collecting OpenGraph and Twitter Card
// meta tags, the document title, and the meta description.
func parseMetaTags(r io.Reader) pageMeta {
	meta := pageMeta{
		openGraph:   make(map[string]string),
		twitterCard: make(map[string]string),
	}

	doc, err := html.Parse(r)
	if err != nil {
		return pageMeta{}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				property, name, content := attr(n, "property"), attr(n, "name"), attr(n, "content")
				if ogProps[property] {
					meta.openGraph[property] = content
				}
				if twitterNames[name] {
					meta.twitterCard[name] = content
				}
				if name == "description" {
					meta.html.MetaDescription = content
				}
			case "title":
				if meta.html.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.html.Title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	meta.ok = true
	if len(meta.openGraph) == 0 {
		meta.openGraph = nil
	}
	if len(meta.twitterCard) == 0 {
		meta.twitterCard = nil
	}
	return meta
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
