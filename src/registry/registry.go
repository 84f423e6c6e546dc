// Package registry answers what providers and models exist, which need a
// credential, and which produce images. The catalog is a cached snapshot:
// reads are synchronous and never fail, refreshes probe asynchronously and
// swap the snapshot in. Entries are append-only within a process.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mkoskin/chatter/src/chatsdk"
)

// ProviderModel is one model offered by a provider.
type ProviderModel struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Kind  chatsdk.ModelKind `json:"kind"`
}

// ProviderDefinition describes a provider and its model catalog.
type ProviderDefinition struct {
	ID             string          `json:"id"`
	Label          string          `json:"label"`
	RequiresAPIKey bool            `json:"requires_api_key"`
	Models         []ProviderModel `json:"models"`
}

// Probe discovers a provider that needs a runtime capability check. A nil
// definition with a nil error means the provider is simply unavailable.
type Probe interface {
	Name() string
	Probe(ctx context.Context) (*ProviderDefinition, error)
}

// Registry is the process-wide provider catalog.
type Registry struct {
	logger *slog.Logger
	probes []Probe

	mu       sync.RWMutex
	snapshot []ProviderDefinition

	refreshMu sync.Mutex
	inflight  *refreshCall
}

type refreshCall struct {
	done chan struct{}
	defs []ProviderDefinition
	err  error
}

// New creates a registry seeded with the static catalog. Probed providers
// appear after the first Refresh.
func New(logger *slog.Logger, probes ...Probe) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger.With("component", "registry"),
		probes:   probes,
		snapshot: staticCatalog(),
	}
}

// List returns the last-known snapshot. It never blocks on probing.
func (r *Registry) List() []ProviderDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderDefinition, len(r.snapshot))
	copy(out, r.snapshot)
	return out
}

// Refresh runs capability probes and updates the snapshot. Concurrent calls
// coalesce into a single probe pass; every caller observes the same result.
func (r *Registry) Refresh(ctx context.Context) ([]ProviderDefinition, error) {
	r.refreshMu.Lock()
	if call := r.inflight; call != nil {
		r.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.defs, call.err
		case <-ctx.Done():
			return r.List(), ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	r.refreshMu.Unlock()

	call.defs, call.err = r.refresh(ctx)
	close(call.done)

	r.refreshMu.Lock()
	r.inflight = nil
	r.refreshMu.Unlock()

	return call.defs, call.err
}

func (r *Registry) refresh(ctx context.Context) ([]ProviderDefinition, error) {
	for _, probe := range r.probes {
		def, err := probe.Probe(ctx)
		if err != nil {
			// Probe failures leave the catalog as-is; the provider may show
			// up on a later refresh.
			r.logger.Warn("capability probe failed", "probe", probe.Name(), "error", err)
			continue
		}
		if def == nil {
			continue
		}
		r.add(*def)
	}
	return r.List(), nil
}

// add merges a probed definition into the snapshot. Existing providers are
// updated in place (models may be added, never removed); new providers are
// appended.
func (r *Registry) add(def ProviderDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.snapshot {
		if r.snapshot[i].ID != def.ID {
			continue
		}
		for _, m := range def.Models {
			if _, ok := findModel(r.snapshot[i].Models, m.ID); !ok {
				r.snapshot[i].Models = append(r.snapshot[i].Models, m)
			}
		}
		return
	}
	r.snapshot = append(r.snapshot, def)
}

// ModelInfo looks up a model. Unknown pairs return ok=false, never an error.
func (r *Registry) ModelInfo(providerID, modelID string) (ProviderModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.snapshot {
		if def.ID == providerID {
			return findModel(def.Models, modelID)
		}
	}
	return ProviderModel{}, false
}

// IsImageModel reports whether the model's kind is image. Unknown pairs are
// reported as text with a logged warning: chats may reference retired models,
// and the caller falls back to the text call pattern rather than failing.
func (r *Registry) IsImageModel(providerID, modelID string) bool {
	m, ok := r.ModelInfo(providerID, modelID)
	if !ok {
		r.logger.Warn("model not in catalog, assuming text kind",
			"provider", providerID, "model", modelID)
		return false
	}
	return m.Kind == chatsdk.ModelKindImage
}

// RequiresAPIKey reports whether the provider needs a stored credential.
// Unknown providers report false.
func (r *Registry) RequiresAPIKey(providerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.snapshot {
		if def.ID == providerID {
			return def.RequiresAPIKey
		}
	}
	return false
}

func findModel(models []ProviderModel, id string) (ProviderModel, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ProviderModel{}, false
}
