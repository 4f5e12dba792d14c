// Package engine is the client of the AI engine that performs retrieval
// augmented generation, remote query classification and usage accounting.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

const (
	ragPath      = "/ragWithSdk"
	classifyPath = "/classifyUserQuery"
	usagePath    = "/logUsage"
)

type Options struct {
	URL             string
	Authorization   string
	AppID           string
	SourceService   string
	TableName       string
	EmbeddingColumn string
	ContentColumn   string
	TopK            int
	Timeout         time.Duration
}

type Client struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// RAGRequest is one retrieval and generation call. Empty retrieval settings
// are filled from the client options.
type RAGRequest struct {
	ConversationID  string               `json:"conversationId"`
	MessageID       string               `json:"messageId"`
	MessageTime     string               `json:"message_time"`
	UserID          string               `json:"user_id"`
	UserQuery       string               `json:"userQuery"`
	AppID           string               `json:"appId"`
	TableName       string               `json:"tableName"`
	EmbeddingColumn string               `json:"embeddingColumn"`
	ContentColumn   string               `json:"contentColumn"`
	Prompt          string               `json:"prompt"`
	ChatHistory     []models.MemoryEntry `json:"chatHistory,omitempty"`
	TopK            int                  `json:"topK"`
}

// Usage is one accounting record for a handled turn.
type Usage struct {
	SourceService   string `json:"sourceService"`
	Category        string `json:"category"`
	IsDeterministic bool   `json:"isDeterministic"`
	DurationMs      int64  `json:"durationMs"`
	ConversationID  string `json:"conversationId"`
	MessageID       string `json:"messageId"`
	UserID          string `json:"userId"`
	TenantID        string `json:"tenantId"`
}

// Respond runs retrieval and generation for req.
func (c *Client) Respond(ctx context.Context, req RAGRequest) (*normalize.RAGResult, error) {
	c.fillDefaults(&req)

	var res normalize.RAGResult
	if err := c.post(ctx, ragPath, req, &res); err != nil {
		return nil, fmt.Errorf("rag call failed: %w", err)
	}
	return &res, nil
}

func (c *Client) fillDefaults(req *RAGRequest) {
	if req.AppID == "" {
		req.AppID = c.opts.AppID
	}
	if req.TableName == "" {
		req.TableName = c.opts.TableName
	}
	if req.EmbeddingColumn == "" {
		req.EmbeddingColumn = c.opts.EmbeddingColumn
	}
	if req.ContentColumn == "" {
		req.ContentColumn = c.opts.ContentColumn
	}
	if req.TopK == 0 {
		req.TopK = c.opts.TopK
	}
}

type classifyRequest struct {
	UserQuery    string `json:"user_query"`
	SystemPrompt string `json:"systemPrompt"`
}

type classifyResponse struct {
	Category          string `json:"category"`
	DeterminationJSON string `json:"determinationJson"`
}

// ClassifyUserQuery asks the engine to classify userQuery under systemPrompt.
// It returns the category tag and the raw determination JSON.
func (c *Client) ClassifyUserQuery(ctx context.Context, userQuery, systemPrompt string) (string, string, error) {
	var res classifyResponse
	if err := c.post(ctx, classifyPath, classifyRequest{UserQuery: userQuery, SystemPrompt: systemPrompt}, &res); err != nil {
		return "", "", fmt.Errorf("classification call failed: %w", err)
	}
	return res.Category, res.DeterminationJSON, nil
}

// LogUsage records u. Failures are logged and otherwise ignored.
func (c *Client) LogUsage(ctx context.Context, u Usage) {
	if u.SourceService == "" {
		u.SourceService = c.opts.SourceService
	}
	if err := c.post(ctx, usagePath, u, nil); err != nil {
		c.logger.Warn("Failed to log usage to AI engine",
			zap.String("category", u.Category),
			zap.Error(err))
	}
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.opts.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Authorization != "" {
		req.Header.Set("Authorization", c.opts.Authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("engine %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
