// Package localclient talks to an on-device model runtime over its local
// HTTP API (Ollama wire format). Availability is not assumed: the runtime is
// discovered through a capability probe the registry runs asynchronously.
package localclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkoskin/chatter/src/chatsdk"
)

// ProviderID is the registry id of the on-device provider.
const ProviderID = "local"

const (
	defaultBaseURL = "http://127.0.0.1:11434"
	defaultTimeout = 300 * time.Second
)

var _ chatsdk.TextStreamer = (*Client)(nil)

// Client is the on-device runtime client. No credential is ever required.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the runtime address, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates a local runtime client.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "local_client"),
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func toChatMessages(messages []chatsdk.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// StreamText opens a streaming chat call. The runtime answers with one JSON
// object per line.
func (c *Client) StreamText(ctx context.Context, req *chatsdk.TextRequest) (chatsdk.TextStream, error) {
	logger := c.logger.With("method", "StreamText", "model", req.Model)
	logger.Debug("opening local chat stream", "messages", len(req.Messages))

	resp, err := c.post(ctx, chatRequest{Model: req.Model, Messages: toChatMessages(req.Messages), Stream: true})
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineStream{body: resp.Body, scanner: scanner}, nil
}

// CompleteText performs a single non-streamed chat call.
func (c *Client) CompleteText(ctx context.Context, req *chatsdk.TextRequest) (string, error) {
	resp, err := c.post(ctx, chatRequest{Model: req.Model, Messages: toChatMessages(req.Messages), Stream: false})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return "", &chatsdk.ProviderError{Provider: ProviderID, Message: result.Error}
	}
	return result.Message.Content, nil
}

func (c *Client) post(ctx context.Context, payload chatRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error string `json:"error"`
		}
		msg := string(raw)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return nil, &chatsdk.ProviderError{
			Provider:   ProviderID,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return resp, nil
}

// lineStream reads newline-delimited JSON chunks.
type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *lineStream) Read() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("malformed stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", &chatsdk.ProviderError{Provider: ProviderID, Message: chunk.Error}
		}
		if chunk.Done {
			s.done = true
		}
		return chunk.Message.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *lineStream) Close() error {
	return s.body.Close()
}
