package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoskin/chatter/src/chatsdk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProbe struct {
	name   string
	def    *ProviderDefinition
	err    error
	delay  time.Duration
	probes atomic.Int64
}

func (p *stubProbe) Name() string { return p.name }

func (p *stubProbe) Probe(ctx context.Context) (*ProviderDefinition, error) {
	p.probes.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.def, p.err
}

func TestListNeverBlocksAndCopies(t *testing.T) {
	r := New(testLogger())

	defs := r.List()
	require.NotEmpty(t, defs)

	// Mutating the returned slice must not affect the snapshot.
	defs[0].ID = "mutated"
	assert.Equal(t, ProviderOpenAI, r.List()[0].ID)
}

func TestRefreshAddsProbedProvider(t *testing.T) {
	probe := &stubProbe{
		name: "local",
		def: &ProviderDefinition{
			ID:    "local",
			Label: "On-Device",
			Models: []ProviderModel{
				{ID: "llama3", Label: "Llama 3", Kind: chatsdk.ModelKindText},
			},
		},
	}
	r := New(testLogger(), probe)

	before := len(r.List())
	defs, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, before+1)

	m, ok := r.ModelInfo("local", "llama3")
	require.True(t, ok)
	assert.Equal(t, chatsdk.ModelKindText, m.Kind)
	assert.False(t, r.RequiresAPIKey("local"))
}

func TestRefreshIsIdempotent(t *testing.T) {
	probe := &stubProbe{
		name: "local",
		def: &ProviderDefinition{
			ID:     "local",
			Models: []ProviderModel{{ID: "llama3", Kind: chatsdk.ModelKindText}},
		},
	}
	r := New(testLogger(), probe)

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)
	second, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	probe := &stubProbe{
		name:  "local",
		delay: 50 * time.Millisecond,
		def:   &ProviderDefinition{ID: "local"},
	}
	r := New(testLogger(), probe)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, probe.probes.Load(), int64(2),
		"concurrent refreshes should coalesce into at most a couple of probe passes")
}

func TestProbeFailureLeavesCatalogIntact(t *testing.T) {
	probe := &stubProbe{name: "local", err: context.DeadlineExceeded}
	r := New(testLogger(), probe)

	before := r.List()
	after, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUnknownLookups(t *testing.T) {
	r := New(testLogger())

	_, ok := r.ModelInfo("openai", "retired-model")
	assert.False(t, ok)
	assert.False(t, r.IsImageModel("openai", "retired-model"))
	assert.False(t, r.IsImageModel("nope", "nope"))
	assert.False(t, r.RequiresAPIKey("nope"))
}

func TestModelKinds(t *testing.T) {
	r := New(testLogger())

	assert.True(t, r.IsImageModel(ProviderOpenAI, "dall-e-2"))
	assert.True(t, r.IsImageModel(ProviderOpenAI, "gpt-image-1"))
	assert.False(t, r.IsImageModel(ProviderOpenAI, "gpt-4o"))
	assert.True(t, r.IsImageModel(ProviderGoogle, "gemini-2.0-flash-preview-image-generation"))
	assert.True(t, r.RequiresAPIKey(ProviderOpenAI))
	assert.True(t, r.RequiresAPIKey(ProviderGoogle))
}
