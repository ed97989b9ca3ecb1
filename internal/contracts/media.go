// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contracts

import (
	"context"
	"time"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/internal/classify"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// MediaContract stages media attachments for a media-capable field.
type MediaContract struct {
	Backend *backend.Client
}

// Name returns the contract name.
func (c *MediaContract) Name() string { return types.ContractMedia }

// Collect stages media from the candidate URLs. The field name supplies a
// staging kind hint; audio fields additionally coerce the staged kind, since
// the backend classifies bare media URLs by sniffing and labels extracted
// soundtracks as video.
func (c *MediaContract) Collect(ctx context.Context, req Request) Partial {
	start := time.Now()
	kind := classify.MediaKindHint(req.FieldID)
	mm := c.Backend.FetchMedia(ctx, req.Candidates, req.FieldID, kind)

	p := Partial{Steps: mm.Steps}
	if mm.OK {
		attachments := mm.Attachments
		if kind == "audio" {
			for i := range attachments {
				attachments[i].Staged.Kind = "audio"
			}
		}
		p.OK = true
		p.Media = attachments
		p.Provenance = mm.Provenance
	} else {
		p.Errors = mm.Errors
	}
	p.setTiming("mediaMs", start)
	return p
}
