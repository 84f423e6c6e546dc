// Package controller coordinates one open conversation: it appends user
// input to the store, runs web-search augmentation, drives a turn through the
// orchestrator, and keeps an in-memory transcript mirror the UI can render.
// The mirror is a disposable cache, always re-derivable from the store.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/orchestrator"
	"github.com/mkoskin/chatter/src/storage"
	"github.com/mkoskin/chatter/src/websearch"
)

// ErrTurnInFlight is returned by Send while a previous turn on this
// conversation has not finished.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ErrNoChatOpen is returned when Send is called before Open or NewChat.
var ErrNoChatOpen = errors.New("no chat is open")

// SecretSource yields the credential for a provider. Empty string means
// unset.
type SecretSource interface {
	Get(providerID string) (string, error)
}

// Searcher resolves extracted queries into system-role context blocks.
type Searcher interface {
	Enabled() bool
	Run(ctx context.Context, queries []string) []chatsdk.Message
}

// TurnRunner executes one conversation turn.
type TurnRunner interface {
	Execute(ctx context.Context, req *orchestrator.TurnRequest) (*orchestrator.TurnResult, error)
}

// Controller manages a single open conversation.
type Controller struct {
	logger  *slog.Logger
	db      storage.ExecQuerier
	secrets SecretSource
	search  Searcher
	runner  TurnRunner

	mu         sync.Mutex
	chat       *storage.Chat
	transcript []storage.Message
	sending    bool
}

// New creates a controller. No conversation is open until Open or NewChat.
func New(logger *slog.Logger, db storage.ExecQuerier, secrets SecretSource, search Searcher, runner TurnRunner) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:  logger.With("component", "controller"),
		db:      db,
		secrets: secrets,
		search:  search,
		runner:  runner,
	}
}

// NewChat creates a conversation bound to the given provider/model and opens
// it.
func (c *Controller) NewChat(ctx context.Context, provider, model string) (*storage.Chat, error) {
	chat := &storage.Chat{Provider: provider, Model: model}
	if err := storage.CreateChat(ctx, c.db, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	c.mu.Lock()
	c.chat = chat
	c.transcript = nil
	c.mu.Unlock()
	return chat, nil
}

// Open loads an existing conversation and its transcript.
func (c *Controller) Open(ctx context.Context, chatID string) error {
	chat, err := storage.GetChatByID(ctx, c.db, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("chat %q not found", chatID)
	}
	messages, err := storage.GetMessagesByChatID(ctx, c.db, chatID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.chat = chat
	c.transcript = messages
	c.mu.Unlock()
	return nil
}

// Chat returns the open conversation's metadata, or nil.
func (c *Controller) Chat() *storage.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil {
		return nil
	}
	chat := *c.chat
	return &chat
}

// Transcript returns a copy of the in-memory transcript mirror.
func (c *Controller) Transcript() []storage.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]storage.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// ReloadTranscript re-derives the mirror from the store, discarding whatever
// the mirror held.
func (c *Controller) ReloadTranscript(ctx context.Context) error {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return ErrNoChatOpen
	}

	messages, err := storage.GetMessagesByChatID(ctx, c.db, chat.ID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.transcript = messages
	c.mu.Unlock()
	return nil
}

// SetModel switches the open conversation's provider/model selection.
func (c *Controller) SetModel(ctx context.Context, provider, model string) error {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return ErrNoChatOpen
	}
	if err := storage.UpdateChatModel(ctx, c.db, chat.ID, provider, model); err != nil {
		return err
	}
	c.mu.Lock()
	c.chat.Provider = provider
	c.chat.Model = model
	c.mu.Unlock()
	return nil
}

// Send runs one turn: persist the user's input, resolve search directives,
// call the provider, and persist the assistant's reply. onUpdate receives the
// accumulating assistant text for live display; it may be nil.
//
// The assistant message is created empty before the provider call and filled
// in afterwards, so a failed turn still leaves a visible, deletable entry.
func (c *Controller) Send(ctx context.Context, text string, attachments []chatsdk.Attachment, onUpdate func(full string)) error {
	c.mu.Lock()
	if c.chat == nil {
		c.mu.Unlock()
		return ErrNoChatOpen
	}
	if c.sending {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.sending = true
	chat := *c.chat
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	clean, queries := websearch.ExtractDirectives(text)
	if strings.TrimSpace(clean) == "" && len(queries) == 0 && len(attachments) == 0 {
		return errors.New("nothing to send")
	}

	history := c.historySnapshot()

	// User input is durable before any provider call.
	if err := c.appendUserInput(ctx, chat.ID, clean, attachments); err != nil {
		return err
	}
	c.maybeDeriveTitle(ctx, &chat, clean)

	// Search context rides along as synthetic system messages. It is never
	// persisted, so it cannot be forged into the durable transcript.
	if len(queries) > 0 && c.search != nil && c.search.Enabled() {
		history = append(history, c.search.Run(ctx, queries)...)
	}

	credential, err := c.secrets.Get(chat.Provider)
	if err != nil {
		c.logger.Warn("failed to read credential, proceeding without", "provider", chat.Provider, "error", err)
		credential = ""
	}

	placeholder, err := c.appendMessage(ctx, chat.ID, chatsdk.RoleAssistant, "")
	if err != nil {
		return err
	}

	result, runErr := c.runner.Execute(ctx, &orchestrator.TurnRequest{
		ChatID:          chat.ID,
		Provider:        chat.Provider,
		Model:           chat.Model,
		APIKey:          credential,
		History:         history,
		Prompt:          clean,
		ReferenceImages: attachments,
		OnUpdate: func(full string) {
			c.setMirrorContent(placeholder.ID, full)
			if onUpdate != nil {
				onUpdate(full)
			}
		},
	})

	content := ""
	if result != nil {
		content = result.Content
	}
	if content != "" {
		if err := storage.UpdateMessageContent(ctx, c.db, placeholder.ID, content); err != nil {
			c.logger.Error("failed to persist assistant message", "message_id", placeholder.ID, "error", err)
			if runErr == nil {
				runErr = err
			}
		}
		c.setMirrorContent(placeholder.ID, content)
	}
	if runErr != nil {
		c.logger.Warn("turn failed", "chat_id", chat.ID, "error", runErr)
		return runErr
	}
	return nil
}

func (c *Controller) historySnapshot() []chatsdk.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chatsdk.Message, 0, len(c.transcript))
	for _, m := range c.transcript {
		out = append(out, chatsdk.Message{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

// appendUserInput persists the text message plus one standalone image
// message per attachment, mirroring each into the transcript.
func (c *Controller) appendUserInput(ctx context.Context, chatID, clean string, attachments []chatsdk.Attachment) error {
	if _, err := c.appendMessage(ctx, chatID, chatsdk.RoleUser, clean); err != nil {
		return err
	}
	for _, att := range attachments {
		content := chatsdk.Content{Kind: chatsdk.ContentImageInline, Data: att.Data, MIME: att.MIME}
		if _, err := c.appendMessage(ctx, chatID, chatsdk.RoleUser, content.Encode()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) appendMessage(ctx context.Context, chatID, role, content string) (*storage.Message, error) {
	msg := &storage.Message{ChatID: chatID, Role: role, Content: content}
	if err := storage.CreateMessage(ctx, c.db, msg); err != nil {
		return nil, fmt.Errorf("failed to persist %s message: %w", role, err)
	}
	c.mu.Lock()
	c.transcript = append(c.transcript, *msg)
	c.mu.Unlock()
	return msg, nil
}

func (c *Controller) setMirrorContent(messageID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.transcript {
		if c.transcript[i].ID == messageID {
			c.transcript[i].Content = content
			return
		}
	}
}

// maybeDeriveTitle fills in a placeholder title from the first user message.
// Failures are logged and swallowed; a stale title never aborts a turn.
func (c *Controller) maybeDeriveTitle(ctx context.Context, chat *storage.Chat, text string) {
	if !titleNeedsDerivation(chat.Title) {
		return
	}
	title := deriveTitle(text)
	if title == "" {
		return
	}
	if err := storage.UpdateChatTitle(ctx, c.db, chat.ID, title); err != nil {
		c.logger.Warn("failed to update chat title", "chat_id", chat.ID, "error", err)
		return
	}
	chat.Title = title
	c.mu.Lock()
	if c.chat != nil && c.chat.ID == chat.ID {
		c.chat.Title = title
	}
	c.mu.Unlock()
}
