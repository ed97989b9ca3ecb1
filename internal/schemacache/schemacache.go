// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schemacache loads and memoizes form schema documents by content
// subtype. Schema load is foundational to field classification, so fetches
// retry with bounded attempts; successful documents are held in a bounded
// TTL cache and handed out as shared immutable pointers.
package schemacache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/pdiddy/enrich-engine/internal/httputil"
	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// schemaPath is the schema service endpoint relative to the backend base URL.
const schemaPath = "/api/v1/forms/schema"

// internalTokenHeader carries the backend auth token when configured.
const internalTokenHeader = "X-Internal-Token"

// Cache fetches and memoizes schema documents.
type Cache struct {
	client  *http.Client
	secrets *secrets.Source
	cfg     types.SchemaConfig
	log     *zap.Logger
	lru     *expirable.LRU[string, *types.FormSchemaDocument]
}

// New returns a Cache. A nil logger is replaced with a no-op logger so
// instrumentation can never affect control flow.
func New(client *http.Client, src *secrets.Source, cfg types.SchemaConfig, log *zap.Logger) *Cache {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		client:  client,
		secrets: src,
		cfg:     cfg,
		log:     log,
		lru:     expirable.NewLRU[string, *types.FormSchemaDocument](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Get returns the schema document for subtype, fetching it on a cache miss.
func (c *Cache) Get(ctx context.Context, subtype string) (*types.FormSchemaDocument, error) {
	subtype = strings.TrimSpace(subtype)
	if subtype == "" {
		return nil, fmt.Errorf("empty subtype")
	}
	if doc, ok := c.lru.Get(subtype); ok {
		c.log.Debug("schema cache hit", zap.String("subtype", subtype))
		return doc, nil
	}

	doc, err := c.fetch(ctx, subtype)
	if err != nil {
		return nil, err
	}
	c.lru.Add(subtype, doc)
	return doc, nil
}

func (c *Cache) fetch(ctx context.Context, subtype string) (*types.FormSchemaDocument, error) {
	base := c.secrets.BackendBaseURL()
	if base == "" {
		return nil, fmt.Errorf("backend base URL not configured")
	}

	// The schema budget is enforced here, not on the shared HTTP client,
	// which other components configure with their own timeouts.
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	reqURL := base + schemaPath + "?subtype=" + url.QueryEscape(subtype)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if token := c.secrets.BackendToken(); token != "" {
		req.Header.Set(internalTokenHeader, token)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("schema service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema service returned HTTP %d", resp.StatusCode)
	}

	var doc types.FormSchemaDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing schema response: %w", err)
	}
	if len(doc.Properties) == 0 {
		return nil, fmt.Errorf("schema response has no properties for subtype %q", subtype)
	}
	if doc.Subtype == "" {
		doc.Subtype = subtype
	}

	c.log.Debug("schema loaded",
		zap.String("subtype", subtype),
		zap.Int("fields", len(doc.Properties)))
	return &doc, nil
}
