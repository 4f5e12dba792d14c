// Package chat handles one conversation turn end to end: classification,
// routing, retrieval augmented generation and persistence of the turn.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/classifier"
	"github.com/xaenox/billing-assistant/internal/engine"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
	"github.com/xaenox/billing-assistant/internal/router"
	"github.com/xaenox/billing-assistant/internal/storage"
)

// DeleteAllResponse is returned once all chat data is removed.
const DeleteAllResponse = "Success!"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Router interface {
	Route(ctx context.Context, category models.Category, payload map[string]any, userQuery string) (*router.Result, error)
}

type Engine interface {
	Respond(ctx context.Context, req engine.RAGRequest) (*normalize.RAGResult, error)
	LogUsage(ctx context.Context, u engine.Usage)
}

type Options struct {
	// SystemPrompt is handed to the classifier with every query.
	SystemPrompt string
	// MemoryLimit caps the prior messages sent with a RAG call.
	MemoryLimit int
	MailAppID   string
}

type Service struct {
	classifier classifier.Classifier
	router     Router
	engine     Engine
	storage    storage.Storage
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(cls classifier.Classifier, rt Router, eng Engine, store storage.Storage, opts Options, logger *zap.Logger) *Service {
	return &Service{
		classifier: cls,
		router:     rt,
		engine:     eng,
		storage:    store,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleTurn answers one user query. Unsupported categories fail with
// *models.UnsupportedCategoryError.
func (s *Service) HandleTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	start := s.now()
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	cls, err := s.classifier.Classify(ctx, req.UserQuery, s.opts.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to classify query: %w", err)
	}
	payload := s.decodeDetermination(cls.Determination)

	s.logger.Info("Classified user query",
		zap.String("conversation_id", req.ConversationID),
		zap.String("category", cls.Category))

	category, err := models.ParseCategory(cls.Category)
	if err != nil {
		return nil, err
	}

	routed, err := s.router.Route(ctx, category, payload, req.UserQuery)
	if err != nil {
		return nil, err
	}

	history, err := s.memoryBefore(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		completion models.Completion
		additional = []any{}
	)
	if routed.IsDeterministic() {
		completion = *routed.Deterministic
	} else {
		res, err := s.engine.Respond(ctx, engine.RAGRequest{
			ConversationID: req.ConversationID,
			MessageID:      req.MessageID,
			MessageTime:    req.MessageTime,
			UserID:         req.UserID,
			UserQuery:      req.UserQuery,
			AppID:          req.AppID,
			Prompt:         routed.Prompt,
			ChatHistory:    history,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate response: %w", err)
		}
		completion = normalize.NormalizeCompletion(res)
		additional = normalize.NormalizeAdditionalContents(res)
	}

	answeredAt := s.now()
	if err := s.memoryAfter(ctx, req.ConversationID, completion, answeredAt); err != nil {
		return nil, err
	}

	s.engine.LogUsage(ctx, engine.Usage{
		Category:        string(category),
		IsDeterministic: routed.IsDeterministic(),
		DurationMs:      answeredAt.Sub(start).Milliseconds(),
		ConversationID:  req.ConversationID,
		MessageID:       req.MessageID,
		UserID:          req.UserID,
	})

	return &models.ChatResponse{
		ConversationID:     req.ConversationID,
		Role:               completion.Role,
		Content:            completion.Content,
		MessageTime:        answeredAt.UTC().Format(timestampLayout),
		MessageID:          req.MessageID,
		AdditionalContents: additional,
	}, nil
}

// decodeDetermination parses the classifier arguments; invalid JSON yields
// an empty payload.
func (s *Service) decodeDetermination(raw string) map[string]any {
	payload := map[string]any{}
	if raw == "" {
		return payload
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload == nil {
		s.logger.Warn("Invalid determination JSON", zap.String("determination", raw), zap.Error(err))
		return map[string]any{}
	}
	return payload
}

// History returns the persisted turns of a conversation, oldest first.
func (s *Service) History(ctx context.Context, conversationID string) ([]*models.Message, error) {
	messages, err := s.storage.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// DeleteAll removes every conversation and message.
func (s *Service) DeleteAll(ctx context.Context) (string, error) {
	if err := s.storage.DeleteAll(ctx); err != nil {
		s.logger.Error("Failed to delete chat data", zap.Error(err))
		return "", fmt.Errorf("failed to delete chat data: %w", err)
	}
	return DeleteAllResponse, nil
}
