// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contracts defines the retrieval contracts the planner executes
// and the registry that resolves planned contract names to handlers. Each
// contract collects one portion of the evidence bundle and returns a
// partial; the planner owns merging. Handler failures are contained: a
// contract that errors or panics contributes an empty partial plus a debug
// step, never an aborted bundle.
package contracts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// Request carries planner context into contract execution.
type Request struct {
	// Candidates is the ordered candidate URL list.
	Candidates []string

	// FieldID is the field the collection prefers, when one applies.
	FieldID string

	// Schema is the form schema for the resolved subtype, possibly nil.
	Schema *types.FormSchemaDocument

	// FormValues holds current form field values for prompt interpolation.
	FormValues map[string]string
}

// Partial is one contract's contribution to an evidence bundle.
type Partial struct {
	OK          bool
	Title       string
	Description string
	Thumbnail   string
	Article     *types.Article
	Generation  *types.Generation
	Metadata    *types.PageMetadata
	Media       []types.Attachment
	Citations   []string
	Provenance  types.Provenance
	Errors      []types.ErrorDetail
	Steps       []types.DebugStep
	Timings     map[string]int64
}

// setTiming records this contract's duration under its timing key.
func (p *Partial) setTiming(key string, start time.Time) {
	if p.Timings == nil {
		p.Timings = make(map[string]int64)
	}
	p.Timings[key] = time.Since(start).Milliseconds()
}

// Contract collects one portion of an evidence bundle.
type Contract interface {
	// Name is the contract name used in planning output.
	Name() string

	// Collect gathers this contract's contribution. Failures are reported
	// inside the partial, not as an error return.
	Collect(ctx context.Context, req Request) Partial
}

// Registry resolves contract names to handlers. Registration order is
// preserved through resolution, except generic always runs last so its
// page-level defaults never clobber specialized contributions.
type Registry struct {
	contracts map[string]Contract
	log       *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger is replaced with a
// no-op logger.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{contracts: make(map[string]Contract), log: log}
}

// Register adds a contract, replacing any previous handler with that name.
func (r *Registry) Register(c Contract) {
	r.contracts[c.Name()] = c
}

// Resolve maps planned contract names to handlers. Unknown names are
// skipped, duplicates collapse to the first occurrence, and generic is
// moved to the end when present.
func (r *Registry) Resolve(names []string) []Contract {
	var out []Contract
	var generic Contract
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		c, ok := r.contracts[n]
		if !ok {
			r.log.Debug("unknown contract skipped", zap.String("contract", n))
			continue
		}
		if n == types.ContractGeneric {
			generic = c
			continue
		}
		out = append(out, c)
	}
	if generic != nil {
		out = append(out, generic)
	}
	return out
}

// Execute runs one contract with panic containment. A panicking handler
// yields an empty partial carrying a debug step and a protocol error.
func (r *Registry) Execute(ctx context.Context, c Contract, req Request) (p Partial) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("contract panicked",
				zap.String("contract", c.Name()),
				zap.Any("panic", rec))
			p = Partial{
				Errors: []types.ErrorDetail{{
					Code:    types.ErrProtocol,
					Message: fmt.Sprintf("contract %s panicked: %v", c.Name(), rec),
				}},
				Steps: []types.DebugStep{{
					Event: "contract_panic",
					Err:   fmt.Sprintf("%v", rec),
				}},
			}
		}
	}()
	return c.Collect(ctx, req)
}
