package classifier

import (
	"context"

	"go.uber.org/zap"
)

// QueryClassifier is the remote classification endpoint of the AI engine.
type QueryClassifier interface {
	ClassifyUserQuery(ctx context.Context, userQuery, systemPrompt string) (category, determination string, err error)
}

// EngineClassifier delegates classification to the AI engine.
type EngineClassifier struct {
	remote   QueryClassifier
	fallback Classifier
	logger   *zap.Logger
}

func NewEngineClassifier(remote QueryClassifier, fallback Classifier, logger *zap.Logger) *EngineClassifier {
	return &EngineClassifier{remote: remote, fallback: fallback, logger: logger}
}

func (c *EngineClassifier) Classify(ctx context.Context, userQuery, systemPrompt string) (Classification, error) {
	category, determination, err := c.remote.ClassifyUserQuery(ctx, userQuery, systemPrompt)
	if err != nil {
		if c.fallback == nil {
			return Classification{}, err
		}
		c.logger.Warn("Engine classification failed, using keyword fallback", zap.Error(err))
		return c.fallback.Classify(ctx, userQuery, systemPrompt)
	}

	c.logger.Info("AI engine classification",
		zap.String("query", userQuery),
		zap.String("category", category),
		zap.String("determination", determination))
	return Classification{Category: category, Determination: determination}, nil
}
