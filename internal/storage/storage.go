package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/billing-assistant/internal/models"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists conversations and their messages.
type Storage interface {
	ConversationStorage
	MessageStorage

	// DeleteAll removes every conversation and message.
	DeleteAll(ctx context.Context) error
	Close() error
}

type ConversationStorage interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	TouchConversation(ctx context.Context, id string, at time.Time) error
}

type MessageStorage interface {
	AddMessage(ctx context.Context, message *models.Message) error
	// ListMessages returns the messages of a conversation oldest first.
	// A limit <= 0 returns all of them; otherwise the most recent limit.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
}
