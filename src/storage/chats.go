package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// CreateChat creates a new chat. A missing ID, title, or timestamps are
// filled in.
func CreateChat(ctx context.Context, db Execer, chat *Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	if chat.Title == "" {
		chat.Title = DefaultChatTitle
	}
	now := time.Now().UTC()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = now
	}

	query := `INSERT INTO chats (id, title, provider, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, chat.ID, chat.Title, chat.Provider, chat.Model, chat.CreatedAt, chat.UpdatedAt)
	return err
}

// GetChatByID retrieves a chat by its ID. Returns nil, nil when not found.
func GetChatByID(ctx context.Context, db sqlscan.Querier, chatID string) (*Chat, error) {
	query := `SELECT id, title, provider, model, created_at, updated_at FROM chats WHERE id = ?`
	var c Chat
	err := sqlscan.Get(ctx, db, &c, query, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListChats retrieves all chats, most recently updated first.
func ListChats(ctx context.Context, db sqlscan.Querier) ([]Chat, error) {
	query := `SELECT id, title, provider, model, created_at, updated_at FROM chats ORDER BY updated_at DESC`
	var chats []Chat
	if err := sqlscan.Select(ctx, db, &chats, query); err != nil {
		return nil, err
	}
	return chats, nil
}

// UpdateChatTitle renames a chat and bumps updated_at.
func UpdateChatTitle(ctx context.Context, db Execer, chatID, title string) error {
	query := `UPDATE chats SET title = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, title, time.Now().UTC(), chatID)
	return err
}

// UpdateChatModel switches a chat's provider/model selection and bumps
// updated_at. Last writer wins.
func UpdateChatModel(ctx context.Context, db Execer, chatID, provider, model string) error {
	query := `UPDATE chats SET provider = ?, model = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, provider, model, time.Now().UTC(), chatID)
	return err
}

// DeleteChat removes a chat; its messages cascade. Deleting a chat that does
// not exist is a no-op, not an error.
func DeleteChat(ctx context.Context, db Execer, chatID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	return err
}

// CreateMessage appends a message and bumps the owning chat's updated_at.
func CreateMessage(ctx context.Context, db Execer, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, message.ID, message.ChatID, message.Role, message.Content, message.CreatedAt); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, time.Now().UTC(), message.ChatID)
	return err
}

// UpdateMessageContent mutates a message in place. Used to fill the empty
// assistant placeholder as streamed output arrives and settles.
func UpdateMessageContent(ctx context.Context, db Execer, messageID, content string) error {
	_, err := db.ExecContext(ctx, `UPDATE messages SET content = ? WHERE id = ?`, content, messageID)
	return err
}

// GetMessagesByChatID retrieves a chat's messages ordered by creation time,
// ties broken by insertion order.
func GetMessagesByChatID(ctx context.Context, db sqlscan.Querier, chatID string) ([]Message, error) {
	query := `SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY created_at, rowid`
	var messages []Message
	if err := sqlscan.Select(ctx, db, &messages, query, chatID); err != nil {
		return nil, err
	}
	return messages, nil
}

// CountMessages returns the number of messages in a chat.
func CountMessages(ctx context.Context, db sqlscan.Querier, chatID string) (int, error) {
	var n int
	err := sqlscan.Get(ctx, db, &n, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID)
	return n, err
}
