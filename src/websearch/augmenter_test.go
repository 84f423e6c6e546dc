package websearch

import (
	"context"
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

func TestDisabledWithoutEndpoint(t *testing.T) {
	a := New(Config{}, testLogger())
	assert.False(t, a.Enabled())
	assert.Nil(t, a.Run(context.Background(), []string{"anything"}))
}

func TestRunProducesSystemBlocks(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "rust ownership", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"results":[{"title":"Ownership","url":"http://127.0.0.1:1/none","content":"Ownership is Rust's memory model."}]}`)
	}))
	defer backend.Close()

	a := New(Config{Endpoint: backend.URL}, testLogger())
	msgs := a.Run(context.Background(), []string{"rust ownership"})

	require.Len(t, msgs, 1)
	assert.Equal(t, chatsdk.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "rust ownership")
	assert.Contains(t, msgs[0].Content, "Ownership is Rust's memory model.")
}

func TestRunFailedQueryYieldsFailureBlock(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	a := New(Config{Endpoint: backend.URL}, testLogger())
	msgs := a.Run(context.Background(), []string{"doomed"})

	require.Len(t, msgs, 1)
	assert.Equal(t, chatsdk.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "failed")
	assert.Contains(t, msgs[0].Content, "doomed")
}

func TestExtractReadable(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
		<nav>menu</nav>
		<script>evil()</script>
		<article><h1>Title</h1><p>Useful paragraph.</p></article>
		<footer>copyright</footer>
	</body></html>`

	text, err := extractReadable(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Useful paragraph.")
	assert.NotContains(t, text, "evil()")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "copyright")
}
