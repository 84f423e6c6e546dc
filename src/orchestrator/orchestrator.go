// Package orchestrator executes a single conversation turn: it picks the call
// pattern for the active provider/model (streaming text, one-shot image
// generation, or image edit with references), drives the provider call, and
// reports incremental progress. It never touches the conversation store;
// persisting what it returns is the caller's job.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/registry"
)

// ErrMissingCredential is returned before any network call when the selected
// provider requires an API key and none was supplied.
var ErrMissingCredential = errors.New("missing credential")

// NoImageFallback is the assistant content used when an image model returns
// neither an image nor text.
const NoImageFallback = "No image was generated."

const maxReferenceImages = 3

// Provider bundles the capability interfaces one backend implements. Either
// field may be nil when the backend lacks that capability.
type Provider struct {
	Text  chatsdk.TextStreamer
	Image chatsdk.ImageGenerator
}

// Providers maps provider ids to their capability bundles.
type Providers map[string]Provider

// Catalog is the registry surface the orchestrator consults. Lookups are
// best-effort: an unknown model falls back to the text call pattern.
type Catalog interface {
	IsImageModel(providerID, modelID string) bool
	RequiresAPIKey(providerID string) bool
}

// ImageSaver persists decoded image bytes and returns a stable local
// reference usable as message content.
type ImageSaver interface {
	Save(data []byte, mime string) (string, error)
}

// TurnRequest describes one turn. History is the exact message window echoed
// to the model; the prompt is appended as the closing user message, so the
// caller must not duplicate it in History.
type TurnRequest struct {
	ChatID   string
	Provider string
	Model    string
	APIKey   string
	History  []chatsdk.Message
	Prompt   string

	// ReferenceImages select the image-edit pattern when the model is
	// image-kind. Ignored for text models.
	ReferenceImages []chatsdk.Attachment

	// OnUpdate receives the full accumulated text after each streamed
	// chunk, in arrival order. Never invoked after Execute returns. May be
	// nil. Image turns produce no updates.
	OnUpdate func(full string)
}

// TurnResult is the assistant content produced by a completed turn. Content
// for image turns is a file URI or data URI per the message content
// convention.
type TurnResult struct {
	Content string
}

// Orchestrator runs turns. At most one turn is in flight per chat id;
// concurrent Execute calls for the same chat serialize.
type Orchestrator struct {
	logger    *slog.Logger
	catalog   Catalog
	providers Providers
	images    ImageSaver

	mu     sync.Mutex
	active map[string]*sync.Mutex
}

// New creates an orchestrator.
func New(logger *slog.Logger, catalog Catalog, providers Providers, images ImageSaver) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:    logger.With("component", "orchestrator"),
		catalog:   catalog,
		providers: providers,
		images:    images,
		active:    make(map[string]*sync.Mutex),
	}
}

// Execute runs one turn to completion or terminal error. Partial text already
// delivered through OnUpdate is returned alongside a stream error so the
// caller can keep it.
func (o *Orchestrator) Execute(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	unlock := o.acquire(req.ChatID)
	defer unlock()

	logger := o.logger.With("provider", req.Provider, "model", req.Model)

	if o.catalog.RequiresAPIKey(req.Provider) && req.APIKey == "" {
		logger.Warn("turn rejected, no credential configured")
		return nil, fmt.Errorf("provider %q requires an API key: %w", req.Provider, ErrMissingCredential)
	}

	if o.catalog.IsImageModel(req.Provider, req.Model) {
		return o.imageTurn(ctx, logger, req)
	}
	return o.textTurn(ctx, logger, req)
}

// acquire serializes turns per chat. The per-chat mutexes are never removed;
// the map is bounded by the number of chats touched in a process lifetime.
func (o *Orchestrator) acquire(chatID string) func() {
	o.mu.Lock()
	m, ok := o.active[chatID]
	if !ok {
		m = &sync.Mutex{}
		o.active[chatID] = m
	}
	o.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (o *Orchestrator) textTurn(ctx context.Context, logger *slog.Logger, req *TurnRequest) (*TurnResult, error) {
	provider, ok := o.providers[req.Provider]
	if !ok || provider.Text == nil {
		return nil, fmt.Errorf("provider %q does not support text generation", req.Provider)
	}

	messages := make([]chatsdk.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	if req.Prompt != "" {
		messages = append(messages, chatsdk.Message{Role: chatsdk.RoleUser, Content: req.Prompt})
	}
	textReq := &chatsdk.TextRequest{Model: req.Model, Messages: messages, Credential: req.APIKey}

	stream, err := provider.Text.StreamText(ctx, textReq)
	if err != nil {
		return nil, err
	}

	acc := chatsdk.NewAccumulator(req.OnUpdate)
	err = chatsdk.StreamToCallback(stream, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		acc.Add(delta)
		return nil
	})
	if err != nil {
		// Partial output was already handed to the caller chunk by
		// chunk; return it so the caller can keep what arrived.
		return &TurnResult{Content: acc.String()}, err
	}

	if acc.Len() == 0 {
		logger.Debug("stream yielded no tokens, retrying without streaming")
		text, err := provider.Text.CompleteText(ctx, textReq)
		if err != nil {
			return nil, err
		}
		if req.OnUpdate != nil && text != "" {
			req.OnUpdate(text)
		}
		return &TurnResult{Content: text}, nil
	}
	return &TurnResult{Content: acc.String()}, nil
}

func (o *Orchestrator) imageTurn(ctx context.Context, logger *slog.Logger, req *TurnRequest) (*TurnResult, error) {
	provider, ok := o.providers[req.Provider]
	if !ok || provider.Image == nil {
		return nil, fmt.Errorf("provider %q does not support image generation", req.Provider)
	}

	refs := req.ReferenceImages
	limit := referenceLimit(req.Provider, req.Model)
	if len(refs) > limit {
		logger.Debug("truncating reference images", "supplied", len(refs), "accepted", limit)
		refs = refs[:limit]
	}

	result, err := provider.Image.GenerateImage(ctx, &chatsdk.ImageRequest{
		Model:           req.Model,
		Prompt:          req.Prompt,
		ReferenceImages: refs,
		Credential:      req.APIKey,
	})
	if err != nil {
		return nil, err
	}

	if result.Image == nil {
		if result.Text != "" {
			return &TurnResult{Content: result.Text}, nil
		}
		logger.Warn("image model returned no payload")
		return &TurnResult{Content: NoImageFallback}, nil
	}

	uri, err := o.images.Save(result.Image.Data, result.Image.MIME)
	if err != nil {
		return nil, fmt.Errorf("failed to persist generated image: %w", err)
	}
	return &TurnResult{Content: uri}, nil
}

// referenceLimit is how many reference images an image edit transmits.
// DALL-E 2's edit endpoint takes a single image; everything else accepts a
// small batch.
func referenceLimit(providerID, modelID string) int {
	if providerID == registry.ProviderOpenAI && modelID == "dall-e-2" {
		return 1
	}
	return maxReferenceImages
}
