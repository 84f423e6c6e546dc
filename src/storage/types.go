package storage

import "time"

// DefaultChatTitle is the title chats are created with until one is derived
// from the first user message or the user renames it.
const DefaultChatTitle = "New Chat"

// Chat is a persisted conversation bound to a provider/model selection.
type Chat struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Provider  string    `json:"provider" db:"provider"`
	Model     string    `json:"model" db:"model"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a persisted turn entry. Content may encode an image as a
// file:// URI or a data URL; see chatsdk.DecodeContent.
type Message struct {
	ID        string    `json:"id" db:"id"`
	ChatID    string    `json:"chat_id" db:"chat_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
