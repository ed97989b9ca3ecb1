// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata gathers page-level evidence for candidate URLs. Each
// candidate is probed by independent sources running concurrently (text
// extraction, oEmbed discovery, HTML meta-tag scrape) whose contributions
// merge under a fixed precedence. Candidates are probed sequentially with
// first-success-wins semantics; merged records are held in a bounded TTL
// cache (successes only, so failures retry next call).
package metadata

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// Fetcher runs the merged page-level metadata operation.
type Fetcher struct {
	client  *http.Client
	secrets *secrets.Source
	cfg     types.MetadataConfig
	log     *zap.Logger
	cache   *expirable.LRU[string, *Record]
}

// New returns a Fetcher. A nil logger is replaced with a no-op logger.
func New(client *http.Client, src *secrets.Source, cfg types.MetadataConfig, log *zap.Logger) *Fetcher {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = 12000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:  client,
		secrets: src,
		cfg:     cfg,
		log:     log,
		cache:   expirable.NewLRU[string, *Record](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Result is the outcome of one metadata fetch.
type Result struct {
	OK        bool
	Record    *Record
	CacheHit  bool
	Errors    []types.ErrorDetail
	Steps     []types.DebugStep
	ElapsedMs int64
}

// Fetch probes candidates in order until one yields a usable record. The
// three sources for a candidate run concurrently and all are awaited
// before merging; a slow or failed source never aborts the others.
func (f *Fetcher) Fetch(ctx context.Context, candidates []string) Result {
	start := time.Now()
	res := Result{}

	if len(candidates) == 0 {
		res.Errors = append(res.Errors, types.ErrorDetail{
			Code:    types.ErrValidation,
			Message: "no URL provided",
		})
		return res
	}

	for _, src := range candidates {
		res.Steps = append(res.Steps, types.DebugStep{Event: "candidate", URL: src})

		if cached, ok := f.cache.Get(src); ok {
			f.log.Debug("metadata cache hit", zap.String("url", src))
			res.Steps = append(res.Steps, types.DebugStep{Event: "cache_hit", URL: src})
			res.OK = true
			res.Record = cached
			res.CacheHit = true
			res.ElapsedMs = time.Since(start).Milliseconds()
			return res
		}

		rec, steps := f.gather(ctx, src)
		res.Steps = append(res.Steps, steps...)
		if rec.Usable() {
			f.cache.Add(src, rec)
			f.log.Debug("metadata merged",
				zap.String("url", src),
				zap.Strings("sources", rec.Provenance.SourcesUsed))
			res.OK = true
			res.Record = rec
			res.ElapsedMs = time.Since(start).Milliseconds()
			return res
		}
	}

	res.Errors = append(res.Errors, types.ErrorDetail{
		Code:    types.ErrNotFound,
		Message: "no metadata or content could be extracted",
	})
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res
}

// gather runs the three sources for one candidate concurrently and merges
// their contributions. Scatter/gather with no partial short-circuit: every
// source finishes (or times out on the per-source budget) before the merge.
func (f *Fetcher) gather(ctx context.Context, src string) (*Record, []types.DebugStep) {
	budget := f.cfg.Timeout
	if budget <= 0 {
		budget = 8 * time.Second
	}
	gatherCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		ext      extraction
		extStep  types.DebugStep
		oe       *types.OEmbed
		oeStep   types.DebugStep
		page     pageMeta
		pageStep types.DebugStep
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		ext, extStep = f.fetchExtraction(gatherCtx, src)
		return nil
	})
	g.Go(func() error {
		oe, oeStep = f.fetchOEmbed(gatherCtx, src)
		return nil
	})
	g.Go(func() error {
		page, pageStep = f.scrapePage(gatherCtx, src)
		return nil
	})
	g.Wait()

	steps := []types.DebugStep{extStep, oeStep, pageStep}
	return merge(src, ext, oe, page, f.cfg.MaxContentChars), steps
}
