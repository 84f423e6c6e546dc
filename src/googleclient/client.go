// Package googleclient is a hand-rolled client for the Google Generative
// Language API (Gemini): streamed text generation and one-shot image
// generation with optional reference images.
package googleclient

import (
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

const (
	providerID     = "google"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 120 * time.Second

	defaultRetryCount = 3
	defaultRetryDelay = time.Second
)

var (
	_ chatsdk.TextStreamer   = (*Client)(nil)
	_ chatsdk.ImageGenerator = (*Client)(nil)
)

// Client is the Gemini API client.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	retryCount int
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetry overrides retry behavior.
func WithRetry(count int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryCount = count
		c.retryDelay = delay
	}
}

// New creates a Gemini client.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "google_client"),
		baseURL:    defaultBaseURL,
		retryCount: defaultRetryCount,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the generateContent family of endpoints.

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// buildContents converts a chatsdk history into Gemini contents. System
// messages become the systemInstruction; assistant maps to the "model" role.
func buildContents(messages []chatsdk.Message) (*content, []content) {
	var system *content
	var contents []content

	for _, m := range messages {
		switch m.Role {
		case chatsdk.RoleSystem:
			if system == nil {
				system = &content{}
			}
			system.Parts = append(system.Parts, part{Text: m.Content})
		case chatsdk.RoleAssistant:
			contents = append(contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	return system, contents
}

// newRequest creates an HTTP request with the API key header set.
func (c *Client) newRequest(ctx context.Context, method, path, credential string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", credential)
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying transport failures
// and retryable API errors (5xx, 429) with linear backoff. Other API errors
// come back immediately as structured errors.
func (c *Client) doRequestWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	logger := c.logger.With("method", "doRequestWithRetry", "url", req.URL.Path)

	var lastErr error
	for i := 0; i < c.retryCount; i++ {
		reqCopy := req.Clone(req.Context())
		reqCopy.Body = io.NopCloser(bytes.NewReader(body))

		resp, err := c.httpClient.Do(reqCopy)
		if err != nil {
			lastErr = err
			logger.Debug("request attempt failed", "attempt", i+1, "error", err)
			time.Sleep(c.retryDelay * time.Duration(i+1))
			continue
		}

		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}

		apiErr := c.handleError(resp)
		resp.Body.Close()
		perr, ok := chatsdk.AsProviderError(apiErr)
		if !ok || !perr.IsRetryable() {
			return nil, apiErr
		}
		lastErr = apiErr
		logger.Debug("retryable API error", "attempt", i+1, "status_code", perr.StatusCode)
		time.Sleep(c.retryDelay * time.Duration(i+1))
	}

	logger.Error("request failed after all retries", "retry_count", c.retryCount, "error", lastErr)
	return nil, fmt.Errorf("request failed after %d retries: %w", c.retryCount, lastErr)
}

// handleError turns a non-2xx response into a structured ProviderError,
// preserving the message the API supplied when it parses.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &chatsdk.ProviderError{
			Provider:   providerID,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return &chatsdk.ProviderError{
		Provider:   providerID,
		StatusCode: resp.StatusCode,
		Code:       errResp.Error.Status,
		Message:    errResp.Error.Message,
	}
}

// CompleteText performs a single non-streamed generation.
func (c *Client) CompleteText(ctx context.Context, req *chatsdk.TextRequest) (string, error) {
	system, contents := buildContents(req.Messages)
	body, err := json.Marshal(generateRequest{SystemInstruction: system, Contents: contents})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/models/%s:generateContent", req.Model)
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, req.Credential, body)
	if err != nil {
		return "", err
	}

	resp, err := c.doRequestWithRetry(httpReq, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return textOf(&result), nil
}

// textOf concatenates the text parts of the first candidate.
func textOf(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b bytes.Buffer
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
