// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner turns a fetch request into an executed contract plan and
// a merged evidence bundle. In bundle mode every requested field resolves to
// a contract, the contract union executes with generic last, and the
// partial contributions merge deterministically: scalars are last writer
// wins, citations are an order-preserving union, debug traces concatenate.
// Single-field mode maps one resolved contract to one operation.
package planner

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/internal/classify"
	"github.com/pdiddy/enrich-engine/internal/contracts"
	"github.com/pdiddy/enrich-engine/internal/metadata"
	"github.com/pdiddy/enrich-engine/internal/schemacache"
	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// Planner executes fetch requests against the contract registry.
type Planner struct {
	schemas  *schemacache.Cache
	metadata *metadata.Fetcher
	backend  *backend.Client
	registry *contracts.Registry
	log      *zap.Logger
}

// New assembles a Planner and its component clients. A nil logger is
// replaced with a no-op logger.
func New(client *http.Client, src *secrets.Source, cfg types.PlannerConfig, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	b := backend.New(client, src, cfg.Backend, log.Named("backend"))
	m := metadata.New(client, src, cfg.Metadata, log.Named("metadata"))
	return &Planner{
		schemas:  schemacache.New(client, src, cfg.Schema, log.Named("schema")),
		metadata: m,
		backend:  b,
		registry: contracts.DefaultRegistry(b, m, log.Named("contracts")),
		log:      log,
	}
}

// Fetch plans and executes one request. The returned bundle is never nil;
// failures are reported through its OK flag and error list.
func (p *Planner) Fetch(ctx context.Context, req types.FetchRequest) *types.EvidenceBundle {
	start := time.Now()
	bundle := &types.EvidenceBundle{}
	bundle.Step(types.DebugStep{Event: "entry", URL: req.PrimaryURL()})

	if detail := req.Validate(); detail != nil {
		bundle.Errors = append(bundle.Errors, *detail)
		return bundle
	}

	doc := p.loadSchema(ctx, req, bundle)

	if req.BundleMode() {
		p.fetchBundle(ctx, req, doc, bundle)
	} else {
		p.fetchSingle(ctx, req, doc, bundle)
	}

	bundle.SetTiming("totalMsAll", time.Since(start).Milliseconds())
	return bundle
}

// loadSchema resolves the effective subtype and loads its schema. A failed
// load degrades to schemaless classification rather than failing the fetch.
func (p *Planner) loadSchema(ctx context.Context, req types.FetchRequest, bundle *types.EvidenceBundle) *types.FormSchemaDocument {
	subtype := strings.TrimSpace(req.ContentType)
	if subtype == "" {
		subtype = classify.InferSubtype(req.CleanFields())
	}
	if subtype == "" {
		return nil
	}

	doc, err := p.schemas.Get(ctx, subtype)
	if err != nil {
		p.log.Warn("schema load failed", zap.String("subtype", subtype), zap.Error(err))
		bundle.Step(types.DebugStep{Event: "schema_load", Err: err.Error()})
		return nil
	}
	bundle.Step(types.DebugStep{Event: "schema_load"})
	return doc
}

// fetchBundle plans contracts for every field and executes the union.
func (p *Planner) fetchBundle(ctx context.Context, req types.FetchRequest, doc *types.FormSchemaDocument, bundle *types.EvidenceBundle) {
	fields := req.CleanFields()
	candidates := req.Candidates()

	plan := classify.PlanBundle(doc, fields, req.PrimaryURL(), req.ContentType)
	union := append(append([]string{}, plan.Contracts...), req.CleanContracts()...)
	bundle.PlannedContracts = plan.ByField
	bundle.Step(types.DebugStep{Event: "planned_contracts"})
	p.log.Info("bundle planned",
		zap.Strings("fields", fields),
		zap.Strings("contracts", union))

	// Collection preference: the explicit fieldId, else the first field.
	fid := strings.TrimSpace(req.FieldID)
	if fid == "" {
		fid = fields[0]
	}

	if u := req.PrimaryURL(); u != "" {
		bundle.AddCitations(u)
		bundle.Provenance.URLsTried = []string{u}
	}

	anyOK := false
	for _, c := range p.registry.Resolve(union) {
		if c.Name() == types.ContractMedia {
			// Media stages per field: each media field gets its own pass so
			// kind hints and the per-field attachment map stay accurate.
			for _, f := range fields {
				if plan.ByField[f] != types.ContractMedia {
					continue
				}
				part := p.registry.Execute(ctx, c, contracts.Request{
					Candidates: candidates,
					FieldID:    f,
					Schema:     doc,
					FormValues: req.FormValues,
				})
				if part.OK {
					anyOK = true
					if bundle.MediaByField == nil {
						bundle.MediaByField = make(map[string][]types.Attachment)
					}
					bundle.MediaByField[f] = part.Media
				}
				mergePartial(bundle, part)
			}
			continue
		}

		part := p.registry.Execute(ctx, c, contracts.Request{
			Candidates: candidates,
			FieldID:    fid,
			Schema:     doc,
			FormValues: req.FormValues,
		})
		if part.OK {
			anyOK = true
		}
		mergePartial(bundle, part)
	}
	bundle.OK = anyOK
}

// fetchSingle resolves one contract and runs its operation.
func (p *Planner) fetchSingle(ctx context.Context, req types.FetchRequest, doc *types.FormSchemaDocument, bundle *types.EvidenceBundle) {
	fieldID := strings.TrimSpace(req.FieldID)
	contract := classify.InferSingle(doc, fieldID, req.PrimaryURL(), req.ContentType, req.TargetContract)

	key := fieldID
	if key == "" {
		key = "default"
	}
	bundle.PlannedContracts = map[string]string{key: contract}
	bundle.Step(types.DebugStep{Event: "planned_contract"})
	p.log.Info("single-field planned",
		zap.String("fieldId", fieldID),
		zap.String("contract", contract))

	candidates := req.Candidates()

	switch contract {
	case types.ContractMedia, types.ContractArticle, types.ContractGeneratedMedia:
		resolved := p.registry.Resolve([]string{contract})
		if len(resolved) == 0 {
			bundle.Errors = append(bundle.Errors, types.ErrorDetail{
				Code:    types.ErrValidation,
				Message: "unknown contract: " + contract,
			})
			return
		}
		part := p.registry.Execute(ctx, resolved[0], contracts.Request{
			Candidates: candidates,
			FieldID:    fieldID,
			Schema:     doc,
			FormValues: req.FormValues,
		})
		bundle.OK = part.OK
		if part.OK && contract == types.ContractMedia {
			bundle.MediaByField = map[string][]types.Attachment{fieldID: part.Media}
		}
		mergePartial(bundle, part)
	default:
		// generic, thread, and transcript run the page-level operation;
		// single-field mode additionally surfaces long-form content.
		mr := p.metadata.Fetch(ctx, candidates)
		bundle.Debug.Steps = append(bundle.Debug.Steps, mr.Steps...)
		bundle.SetTiming("generalMs", mr.ElapsedMs)
		if !mr.OK {
			bundle.Errors = append(bundle.Errors, mr.Errors...)
			bundle.Provenance.URLsTried = candidates
			return
		}
		rec := mr.Record
		bundle.OK = true
		bundle.Title = rec.Title
		bundle.Description = rec.Description
		bundle.Thumbnail = rec.Thumbnail
		bundle.ContentMarkdown = rec.Content
		meta := rec.Metadata
		bundle.Metadata = &meta
		cov := rec.Coverage
		bundle.Coverage = &cov
		bundle.AddCitations(rec.Citations...)
		bundle.Provenance.Merge(rec.Provenance)
	}
}

// mergePartial folds one contract contribution into the bundle. Non-empty
// scalars overwrite, so later contracts win; list and map contributions
// accumulate.
func mergePartial(bundle *types.EvidenceBundle, part contracts.Partial) {
	if part.Title != "" {
		bundle.Title = part.Title
	}
	if part.Description != "" {
		bundle.Description = part.Description
	}
	if part.Thumbnail != "" {
		bundle.Thumbnail = part.Thumbnail
	}
	if part.Article != nil {
		bundle.Article = part.Article
	}
	if part.Generation != nil {
		bundle.Generation = part.Generation
	}
	if part.Metadata != nil {
		bundle.Metadata = part.Metadata
	}
	if len(part.Media) > 0 {
		bundle.Media = append(bundle.Media, part.Media...)
	}
	bundle.AddCitations(part.Citations...)
	bundle.Provenance.Merge(part.Provenance)
	bundle.Errors = append(bundle.Errors, part.Errors...)
	bundle.Debug.Steps = append(bundle.Debug.Steps, part.Steps...)
	for k, v := range part.Timings {
		bundle.SetTiming(k, v)
	}
}
