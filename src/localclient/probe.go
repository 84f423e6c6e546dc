package localclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/registry"
)

const probeTimeout = 2 * time.Second

// minAvailableMemory is the floor below which local models are not advertised
// even when the runtime is reachable. Loading a model on a starved machine
// just trades one failure mode for a worse one.
const minAvailableMemory = 2 << 30

// Probe discovers the on-device runtime and the models it has pulled.
type Probe struct {
	client *Client
	logger *slog.Logger
}

var _ registry.Probe = (*Probe)(nil)

// NewProbe creates a probe backed by the given client.
func NewProbe(client *Client, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{client: client, logger: logger.With("component", "local_probe")}
}

// Name implements registry.Probe.
func (p *Probe) Name() string { return ProviderID }

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Probe implements registry.Probe. It reports the runtime's pulled models, or
// an error when the runtime is unreachable or the machine is low on memory.
func (p *Probe) Probe(ctx context.Context) (*registry.ProviderDefinition, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		p.logger.Warn("failed to read memory stats, continuing probe", "error", err)
	} else if vm.Available < minAvailableMemory {
		return nil, fmt.Errorf("insufficient available memory for local models: %d bytes", vm.Available)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.client.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local runtime not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local runtime returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}

	models := make([]registry.ProviderModel, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, registry.ProviderModel{ID: m.Name, Label: m.Name, Kind: chatsdk.ModelKindText})
	}
	p.logger.Debug("local runtime probed", "models", len(models))

	return &registry.ProviderDefinition{
		ID:             ProviderID,
		Label:          "Local",
		RequiresAPIKey: false,
		Models:         models,
	}, nil
}
