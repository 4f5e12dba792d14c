package models

import "time"

// Role values used for conversation messages and completions.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation groups the turns of one chat session
type Conversation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Message is a single persisted turn
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Completion is the normalized assistant reply
type Completion struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemoryEntry is a prior turn handed to the RAG engine
type MemoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
