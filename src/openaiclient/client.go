// Package openaiclient adapts the OpenAI API to the chatsdk capability
// interfaces: streamed text completions plus one-shot image generation
// and editing.
package openaiclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkoskin/chatter/src/chatsdk"
)

const providerID = "openai"

var (
	_ chatsdk.TextStreamer   = (*Client)(nil)
	_ chatsdk.ImageGenerator = (*Client)(nil)
)

// Client talks to the OpenAI API. The credential travels with each request,
// so one client serves all chats.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates an OpenAI client.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger:     logger.With("component", "openai_client"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) api(credential string) *openai.Client {
	cfg := openai.DefaultConfig(credential)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// StreamText opens a streaming chat completion.
func (c *Client) StreamText(ctx context.Context, req *chatsdk.TextRequest) (chatsdk.TextStream, error) {
	logger := c.logger.With("method", "StreamText", "model", req.Model)
	logger.Debug("opening chat completion stream", "messages", len(req.Messages))

	stream, err := c.api(req.Credential).CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   true,
	})
	if err != nil {
		logger.Error("failed to open stream", "error", err)
		return nil, wrapError(err)
	}
	return &textStream{stream: stream}, nil
}

// CompleteText performs a single non-streamed completion.
func (c *Client) CompleteText(ctx context.Context, req *chatsdk.TextRequest) (string, error) {
	resp, err := c.api(req.Credential).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type textStream struct {
	stream *openai.ChatCompletionStream
}

func (s *textStream) Read() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *textStream) Close() error {
	return s.stream.Close()
}

func toOpenAIMessages(messages []chatsdk.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// wrapError converts go-openai errors into chatsdk.ProviderError so callers
// can prefer the structured message the API supplied.
func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return &chatsdk.ProviderError{
			Provider:   providerID,
			StatusCode: apiErr.HTTPStatusCode,
			Code:       code,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &chatsdk.ProviderError{
			Provider:   providerID,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}
	return err
}
