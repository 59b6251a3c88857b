package domain

import (
	"context"
	"sort"

	"github.com/JovSele/patentapi/internal/patent"
)

// Adapter fetches the legal status of one identifier from one upstream
// office. Fetch returns ErrNotFound, ErrTransient or ErrAuth for the
// failure classes callers are expected to branch on.
type Adapter interface {
	Source() patent.Source
	Fetch(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error)
}

// Registry maps jurisdiction codes onto the single adapter that serves them.
// Registration happens once at startup; lookups afterwards are read-only.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(jurisdiction string, adapter Adapter) {
	r.adapters[jurisdiction] = adapter
}

// Resolve returns the adapter for a jurisdiction. The mapping is
// deterministic, one jurisdiction never resolves to more than one adapter.
func (r *Registry) Resolve(jurisdiction string) (Adapter, error) {
	adapter, ok := r.adapters[jurisdiction]
	if !ok {
		return nil, ErrUnsupportedJurisdiction
	}
	return adapter, nil
}

// Jurisdictions lists the registered jurisdiction codes in sorted order.
func (r *Registry) Jurisdictions() []string {
	out := make([]string, 0, len(r.adapters))
	for code := range r.adapters {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
