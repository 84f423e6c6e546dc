package googleclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mkoskin/chatter/src/chatsdk"
)

// StreamText opens a streamGenerateContent call and reads it as SSE.
func (c *Client) StreamText(ctx context.Context, req *chatsdk.TextRequest) (chatsdk.TextStream, error) {
	logger := c.logger.With("method", "StreamText", "model", req.Model)
	logger.Debug("opening generation stream", "messages", len(req.Messages))

	system, contents := buildContents(req.Messages)
	body, err := json.Marshal(generateRequest{SystemInstruction: system, Contents: contents})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/models/%s:streamGenerateContent?alt=sse", req.Model)
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, req.Credential, body)
	if err != nil {
		return nil, err
	}

	// Streams are not retried; a retry would replay already-delivered tokens.
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Error("failed to open stream", "error", err)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.handleError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

// sseStream reads "data: {json}" lines and yields the text deltas.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *sseStream) Read() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("malformed stream chunk: %w", err)
		}
		// Chunks without text (e.g. safety metadata) yield an empty delta;
		// the consumer skips those.
		return textOf(&chunk), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
