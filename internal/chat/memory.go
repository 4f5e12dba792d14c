package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/storage"
)

const titleLength = 60

// memoryBefore loads the prior turns of the conversation, creating it when
// missing, and records the user message.
func (s *Service) memoryBefore(ctx context.Context, req models.ChatRequest) ([]models.MemoryEntry, error) {
	now := s.now()
	if _, err := s.storage.GetConversation(ctx, req.ConversationID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		conv := &models.Conversation{
			ID:            req.ConversationID,
			UserID:        req.UserID,
			Title:         title(req.UserQuery),
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
		if err := s.storage.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	}

	prior, err := s.storage.ListMessages(ctx, req.ConversationID, s.opts.MemoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	history := make([]models.MemoryEntry, 0, len(prior))
	for _, m := range prior {
		history = append(history, models.MemoryEntry{Role: m.Role, Content: m.Content})
	}

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           models.RoleUser,
		Content:        req.UserQuery,
		CreatedAt:      now,
	}
	if err := s.storage.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	return history, nil
}

// memoryAfter records the assistant reply and bumps the conversation.
func (s *Service) memoryAfter(ctx context.Context, conversationID string, completion models.Completion, at time.Time) error {
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           completion.Role,
		Content:        completion.Content,
		CreatedAt:      at,
	}
	if err := s.storage.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to store assistant message: %w", err)
	}
	if err := s.storage.TouchConversation(ctx, conversationID, at); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

func title(query string) string {
	r := []rune(query)
	if len(r) > titleLength {
		return string(r[:titleLength])
	}
	return query
}
