// Package chatsdk holds the shared types spoken between the conversation
// layers and the provider clients: messages, streams, attachments, and the
// capability interfaces a provider can implement.
package chatsdk

import (
	"context"
	"time"
)

// Message roles transmitted to providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role/content pair in a conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Attachment is an image the user attached to an outgoing message. It has no
// lifecycle beyond the send that consumes it.
type Attachment struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
	// Origin is the source file path, when the attachment came from disk.
	Origin string `json:"origin,omitempty"`
}

// Image is a decoded provider image result.
type Image struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
}

// ModelKind classifies what a model produces.
type ModelKind string

const (
	ModelKindText  ModelKind = "text"
	ModelKindImage ModelKind = "image"
)

// TextRequest is a streaming or one-shot text completion request.
type TextRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Credential string    `json:"-"`
}

// ImageRequest asks an image-capable model for a single image. When
// ReferenceImages is non-empty the call is an edit rather than a generation.
type ImageRequest struct {
	Model           string       `json:"model"`
	Prompt          string       `json:"prompt"`
	ReferenceImages []Attachment `json:"-"`
	Credential      string       `json:"-"`
}

// ImageResult is zero-or-one image plus any accompanying text the model
// produced alongside it.
type ImageResult struct {
	Image *Image `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

// TextStreamer is implemented by providers that can stream text completions.
type TextStreamer interface {
	// StreamText opens a token stream. The returned stream must be closed.
	StreamText(ctx context.Context, req *TextRequest) (TextStream, error)

	// CompleteText performs a single non-streamed completion. Used as a
	// fallback when a stream yields zero tokens.
	CompleteText(ctx context.Context, req *TextRequest) (string, error)
}

// ImageGenerator is implemented by providers that can produce images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error)
}
