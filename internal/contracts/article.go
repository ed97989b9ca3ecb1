// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contracts

import (
	"context"
	"time"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// ArticleContract extracts markdown with staged inline images.
type ArticleContract struct {
	Backend *backend.Client
}

// Name returns the contract name.
func (c *ArticleContract) Name() string { return types.ContractArticle }

// Collect extracts the first readable candidate to markdown.
func (c *ArticleContract) Collect(ctx context.Context, req Request) Partial {
	start := time.Now()
	ar := c.Backend.ExtractArticle(ctx, req.Candidates, req.FieldID)

	p := Partial{Steps: ar.Steps}
	if ar.OK {
		p.OK = true
		p.Article = ar.Article
		p.Citations = ar.Citations
		p.Provenance = ar.Provenance
	} else {
		p.Errors = ar.Errors
	}
	p.setTiming("articleMs", start)
	return p
}
