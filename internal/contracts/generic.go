// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contracts

import (
	"context"
	"time"

	"github.com/pdiddy/enrich-engine/internal/metadata"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// GenericContract contributes page-level metadata: title, description,
// thumbnail, citations, and provenance. It runs last in every bundle so its
// values act as defaults. Long-form content is intentionally left out of
// bundle contributions; the single-field generic operation returns it.
type GenericContract struct {
	Metadata *metadata.Fetcher

	// name lets thread and transcript contracts reuse this collection while
	// keeping their own names in planning output.
	name string
}

// NewGeneric returns the generic contract.
func NewGeneric(f *metadata.Fetcher) *GenericContract {
	return &GenericContract{Metadata: f, name: types.ContractGeneric}
}

// NewThread returns the thread contract. Threads collect through the
// page-level operation until a dedicated backend endpoint exists.
func NewThread(f *metadata.Fetcher) *GenericContract {
	return &GenericContract{Metadata: f, name: types.ContractThread}
}

// NewTranscript returns the transcript contract, also collected through the
// page-level operation.
func NewTranscript(f *metadata.Fetcher) *GenericContract {
	return &GenericContract{Metadata: f, name: types.ContractTranscript}
}

// Name returns the contract name.
func (c *GenericContract) Name() string { return c.name }

// Collect fetches merged page-level metadata for the candidates.
func (c *GenericContract) Collect(ctx context.Context, req Request) Partial {
	start := time.Now()
	mr := c.Metadata.Fetch(ctx, req.Candidates)

	p := Partial{Steps: mr.Steps}
	if mr.OK {
		rec := mr.Record
		p.OK = true
		p.Title = rec.Title
		p.Description = rec.Description
		p.Thumbnail = rec.Thumbnail
		p.Citations = rec.Citations
		p.Provenance = rec.Provenance
		meta := rec.Metadata
		p.Metadata = &meta
	} else {
		p.Errors = mr.Errors
	}
	p.setTiming("generalMs", start)
	return p
}
