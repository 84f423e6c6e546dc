package localclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStreamTextReadsNDJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Hello"},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":" world"},"done":true}` + "\n"))
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	stream, err := client.StreamText(context.Background(), &chatsdk.TextRequest{
		Model:    "llama3",
		Messages: []chatsdk.Message{{Role: chatsdk.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	text, err := chatsdk.CollectStream(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestStreamChunkErrorIsStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}` + "\n"))
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	stream, err := client.StreamText(context.Background(), &chatsdk.TextRequest{Model: "missing"})
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Read()
	var perr *chatsdk.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderID, perr.Provider)
	assert.Contains(t, perr.Message, "not found")
}

func TestCompleteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "four"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	text, err := client.CompleteText(context.Background(), &chatsdk.TextRequest{
		Model:    "llama3",
		Messages: []chatsdk.Message{{Role: chatsdk.RoleUser, Content: "2+2?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "four", text)
}

func TestHTTPErrorIsStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not pulled"}`))
	}))
	defer server.Close()

	client := New(testLogger(), WithBaseURL(server.URL))
	_, err := client.CompleteText(context.Background(), &chatsdk.TextRequest{Model: "nope"})
	var perr *chatsdk.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Equal(t, "model not pulled", perr.Message)
}

func TestProbeListsModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"name":"mistral:7b"}]}`))
	}))
	defer server.Close()

	probe := NewProbe(New(testLogger(), WithBaseURL(server.URL)), testLogger())
	assert.Equal(t, ProviderID, probe.Name())

	def, err := probe.Probe(context.Background())
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, ProviderID, def.ID)
	assert.False(t, def.RequiresAPIKey)
	require.Len(t, def.Models, 2)
	assert.Equal(t, registry.ProviderModel{ID: "llama3:8b", Label: "llama3:8b", Kind: chatsdk.ModelKindText}, def.Models[0])
}

func TestProbeUnreachableRuntime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	probe := NewProbe(New(testLogger(), WithBaseURL(server.URL)), testLogger())
	def, err := probe.Probe(context.Background())
	require.Error(t, err)
	assert.Nil(t, def)
}
