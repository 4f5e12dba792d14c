package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    Classifier
	logger      *zap.Logger
}

// NewGPTClassifier returns a chat completion classifier. fallback, when not
// nil, answers whenever the model call or its JSON fails.
func NewGPTClassifier(cfg GPTConfig, fallback Classifier, logger *zap.Logger) *GPTClassifier {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &GPTClassifier{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		fallback:    fallback,
		logger:      logger,
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, userQuery, systemPrompt string) (Classification, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userQuery,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return c.fallbackClassification(ctx, userQuery, systemPrompt, err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("GPT response has no choices")
		return c.fallbackClassification(ctx, userQuery, systemPrompt, fmt.Errorf("empty completion"))
	}

	response := stripCodeFences(resp.Choices[0].Message.Content)
	out, err := parseDetermination(response)
	if err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return c.fallbackClassification(ctx, userQuery, systemPrompt, err)
	}

	c.logger.Info("Classified user query",
		zap.String("category", out.Category),
		zap.String("determination", out.Determination))
	return out, nil
}

func (c *GPTClassifier) fallbackClassification(ctx context.Context, userQuery, systemPrompt string, cause error) (Classification, error) {
	if c.fallback == nil {
		return Classification{}, fmt.Errorf("classification failed: %w", cause)
	}
	return c.fallback.Classify(ctx, userQuery, systemPrompt)
}

// parseDetermination reads the category out of the model's JSON object and
// keeps the whole object as the determination.
func parseDetermination(response string) (Classification, error) {
	var head struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(response), &head); err != nil {
		return Classification{}, err
	}
	if head.Category == "" {
		return Classification{}, fmt.Errorf("response has no category")
	}
	return Classification{Category: head.Category, Determination: response}, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
