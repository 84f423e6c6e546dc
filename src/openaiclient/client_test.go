package openaiclient

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoskin/chatter/src/chatsdk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStreamTextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" world"}}]}`,
		}
		for _, chunk := range chunks {
			io.WriteString(w, "data: "+chunk+"\n\n")
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	stream, err := client.StreamText(context.Background(), &chatsdk.TextRequest{
		Model:      "gpt-4o",
		Messages:   []chatsdk.Message{{Role: chatsdk.RoleUser, Content: "hi"}},
		Credential: "sk-test",
	})
	require.NoError(t, err)

	text, err := chatsdk.CollectStream(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestCompleteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"four"}}]}`)
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	text, err := client.CompleteText(context.Background(), &chatsdk.TextRequest{
		Model:      "gpt-4o",
		Messages:   []chatsdk.Message{{Role: chatsdk.RoleUser, Content: "2+2?"}},
		Credential: "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "four", text)
}

func TestStructuredAPIErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	_, err := client.CompleteText(context.Background(), &chatsdk.TextRequest{
		Model:      "gpt-4o",
		Messages:   []chatsdk.Message{{Role: chatsdk.RoleUser, Content: "hi"}},
		Credential: "sk-test",
	})
	require.Error(t, err)

	pe, ok := chatsdk.AsProviderError(err)
	require.True(t, ok, "expected a ProviderError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Contains(t, pe.Message, "Rate limit reached")
}

func TestGenerateImageDecodesPayload(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"created":1,"data":[{"b64_json":"`+payload+`","revised_prompt":"a cat"}]}`)
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	res, err := client.GenerateImage(context.Background(), &chatsdk.ImageRequest{
		Model:      "dall-e-3",
		Prompt:     "a cat",
		Credential: "sk-test",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Image)
	assert.Equal(t, []byte("png-bytes"), res.Image.Data)
	assert.Equal(t, "image/png", res.Image.MIME)
	assert.Equal(t, "a cat", res.Text)
}

func TestGenerateImageNoPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"created":1,"data":[]}`)
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	res, err := client.GenerateImage(context.Background(), &chatsdk.ImageRequest{
		Model:      "dall-e-3",
		Prompt:     "nothing",
		Credential: "sk-test",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Image)
}

func TestEditImageSendsReferences(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("edited"))
	var gotImages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/edits", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(16<<20))
		gotImages = len(r.MultipartForm.File["image"]) + len(r.MultipartForm.File["image[]"])
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))
		assert.Equal(t, "add a hat", r.FormValue("prompt"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"created":1,"data":[{"b64_json":"`+payload+`"}]}`)
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	res, err := client.GenerateImage(context.Background(), &chatsdk.ImageRequest{
		Model:  "gpt-image-1",
		Prompt: "add a hat",
		ReferenceImages: []chatsdk.Attachment{
			{Data: []byte("a"), MIME: "image/png"},
			{Data: []byte("b"), MIME: "image/png"},
			{Data: []byte("c"), MIME: "image/jpeg"},
		},
		Credential: "sk-test",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Image)
	assert.Equal(t, []byte("edited"), res.Image.Data)
	assert.Equal(t, 3, gotImages)
}
