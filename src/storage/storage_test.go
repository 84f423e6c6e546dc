package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chatter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetChat(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "openai", Model: "gpt-4o"}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))
	require.NotEmpty(t, chat.ID)
	assert.Equal(t, DefaultChatTitle, chat.Title)

	got, err := GetChatByID(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, chat.ID, got.ID)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestGetChatNotFound(t *testing.T) {
	db := openTestDB(t)

	got, err := GetChatByID(context.Background(), db.DB(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMessageOrderingAndRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "openai", Model: "gpt-4o"}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))

	// Identical created_at timestamps must fall back to insertion order.
	at := time.Now().UTC().Truncate(time.Second)
	contents := []string{
		"first",
		"data:image/png;base64,aGVsbG8=",
		"file:///tmp/chatter/images/x.png",
	}
	for _, c := range contents {
		msg := &Message{ChatID: chat.ID, Role: "user", Content: c, CreatedAt: at}
		require.NoError(t, CreateMessage(ctx, db.DB(), msg))
	}

	msgs, err := GetMessagesByChatID(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content, "content must round-trip byte for byte")
		assert.Equal(t, "user", msgs[i].Role)
	}
}

func TestCreateMessageBumpsChatUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "google", Model: "gemini-2.0-flash", UpdatedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))

	require.NoError(t, CreateMessage(ctx, db.DB(), &Message{ChatID: chat.ID, Role: "user", Content: "hi"}))

	got, err := GetChatByID(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(chat.UpdatedAt))
}

func TestUpdateMessageContent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "openai", Model: "gpt-4o"}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))

	msg := &Message{ChatID: chat.ID, Role: "assistant", Content: ""}
	require.NoError(t, CreateMessage(ctx, db.DB(), msg))

	require.NoError(t, UpdateMessageContent(ctx, db.DB(), msg.ID, "Hello world"))

	msgs, err := GetMessagesByChatID(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello world", msgs[0].Content)
}

func TestDeleteChatCascadesAndIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "openai", Model: "gpt-4o"}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))
	for i := 0; i < 3; i++ {
		require.NoError(t, CreateMessage(ctx, db.DB(), &Message{ChatID: chat.ID, Role: "user", Content: "m"}))
	}

	require.NoError(t, DeleteChat(ctx, db.DB(), chat.ID))

	n, err := CountMessages(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "messages must cascade with their chat")

	// Second delete is a no-op.
	require.NoError(t, DeleteChat(ctx, db.DB(), chat.ID))
}

func TestUpdateChatMetadata(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	chat := &Chat{Provider: "openai", Model: "gpt-4o"}
	require.NoError(t, CreateChat(ctx, db.DB(), chat))

	require.NoError(t, UpdateChatTitle(ctx, db.DB(), chat.ID, "rust ownership"))
	require.NoError(t, UpdateChatModel(ctx, db.DB(), chat.ID, "google", "gemini-1.5-pro"))

	got, err := GetChatByID(ctx, db.DB(), chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "rust ownership", got.Title)
	assert.Equal(t, "google", got.Provider)
	assert.Equal(t, "gemini-1.5-pro", got.Model)
}

func TestListChatsOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	older := &Chat{Provider: "openai", Model: "gpt-4o", UpdatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &Chat{Provider: "openai", Model: "gpt-4o", UpdatedAt: time.Now().UTC()}
	require.NoError(t, CreateChat(ctx, db.DB(), older))
	require.NoError(t, CreateChat(ctx, db.DB(), newer))

	chats, err := ListChats(ctx, db.DB())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, newer.ID, chats[0].ID)
}
