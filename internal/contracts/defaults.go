// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contracts

import (
	"go.uber.org/zap"

	"github.com/pdiddy/enrich-engine/internal/backend"
	"github.com/pdiddy/enrich-engine/internal/metadata"
)

// DefaultRegistry wires the standard contract set over the given clients.
func DefaultRegistry(b *backend.Client, m *metadata.Fetcher, log *zap.Logger) *Registry {
	r := NewRegistry(log)
	r.Register(&MediaContract{Backend: b})
	r.Register(&ArticleContract{Backend: b})
	r.Register(&GeneratedMediaContract{Backend: b})
	r.Register(NewThread(m))
	r.Register(NewTranscript(m))
	r.Register(NewGeneric(m))
	return r
}
