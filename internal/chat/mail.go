package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/engine"
	"github.com/xaenox/billing-assistant/internal/mail"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

const (
	mailCategory      = "mail-extraction"
	mailSourceService = "MAIL"
)

// ExtractMail extracts the expected fields from an e-mail. The reply content
// is always a JSON object.
func (s *Service) ExtractMail(ctx context.Context, req models.MailRequest) (*models.ChatResponse, error) {
	start := s.now()

	fields := mail.NormalizeExpectedFields(req.ExpectedFields)
	var input any = req.MailJSON
	if input == nil {
		input = req.UserQuery
	}
	mailText := mail.FormatForQuery(mail.NormalizePayload(input))

	appID := req.AppID
	if appID == "" {
		appID = s.opts.MailAppID
	}

	res, err := s.engine.Respond(ctx, engine.RAGRequest{
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		MessageTime:    req.MessageTime,
		UserID:         req.UserID,
		UserQuery:      mailText,
		AppID:          appID,
		Prompt:         mail.BuildExtractionPrompt(req.ProjectID, req.ContextType, fields),
	})
	if err != nil {
		s.logger.Error("Mail extraction failed", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		return nil, fmt.Errorf("failed to extract mail: %w", err)
	}

	completion := normalize.NormalizeCompletionWithFallback(res, mail.FallbackMessage)
	answeredAt := s.now()

	s.engine.LogUsage(ctx, engine.Usage{
		SourceService:  mailSourceService,
		Category:       mailCategory,
		DurationMs:     answeredAt.Sub(start).Milliseconds(),
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		UserID:         req.UserID,
	})

	return &models.ChatResponse{
		ConversationID:     req.ConversationID,
		Role:               completion.Role,
		Content:            mail.EnsureJSONContent(completion.Content, fields),
		MessageTime:        answeredAt.UTC().Format(timestampLayout),
		MessageID:          req.MessageID,
		AdditionalContents: normalize.NormalizeAdditionalContents(res),
	}, nil
}
