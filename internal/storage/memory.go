package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/billing-assistant/internal/models"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[string][]*models.Message
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]*models.Message),
	}
}

func (s *MemoryStorage) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, exists := s.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *conversation
	return &copied, nil
}

func (s *MemoryStorage) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Creating an existing conversation is a no-op
	if _, exists := s.conversations[conversation.ID]; exists {
		return nil
	}
	copied := *conversation
	s.conversations[conversation.ID] = &copied
	return nil
}

func (s *MemoryStorage) TouchConversation(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, exists := s.conversations[id]
	if !exists {
		return ErrNotFound
	}
	conversation.LastUpdatedAt = at
	return nil
}

func (s *MemoryStorage) AddMessage(ctx context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *message
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], &copied)
	return nil
}

func (s *MemoryStorage) ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	result := make([]*models.Message, 0, len(stored))
	for _, m := range stored {
		copied := *m
		result = append(result, &copied)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *MemoryStorage) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*models.Conversation)
	s.messages = make(map[string][]*models.Message)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
