package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		URL:             srv.URL + "/",
		Authorization:   "Bearer engine",
		AppID:           "BILLING-CHATBOT",
		SourceService:   "BILLING",
		TableName:       "CHUNKS",
		EmbeddingColumn: "EMBEDDING",
		ContentColumn:   "TEXT_CHUNK",
		TopK:            30,
	}, zap.NewNop())
}

func TestRespondFillsDefaults(t *testing.T) {
	var got RAGRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ragPath, r.URL.Path)
		assert.Equal(t, "Bearer engine", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"completion":"{\"role\":\"assistant\",\"content\":\"hi\"}","additionalContents":[]}`))
	})

	res, err := c.Respond(context.Background(), RAGRequest{
		ConversationID: "c1",
		UserQuery:      "hello",
		Prompt:         "base",
		ChatHistory:    []models.MemoryEntry{{Role: models.RoleUser, Content: "earlier"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Completion{Role: "assistant", Content: "hi"}, normalize.NormalizeCompletion(res))

	assert.Equal(t, "BILLING-CHATBOT", got.AppID)
	assert.Equal(t, "CHUNKS", got.TableName)
	assert.Equal(t, 30, got.TopK)
	assert.Equal(t, "hello", got.UserQuery)
	require.Len(t, got.ChatHistory, 1)
}

func TestRespondErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Respond(context.Background(), RAGRequest{UserQuery: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClassifyUserQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in classifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "status of 4500000001", in.UserQuery)
		assert.Equal(t, "classify", in.SystemPrompt)
		w.Write([]byte(`{"category":"purchase-order-status","determinationJson":"{\"purchaseOrder\":\"4500000001\"}"}`))
	})

	category, determination, err := c.ClassifyUserQuery(context.Background(), "status of 4500000001", "classify")
	require.NoError(t, err)
	assert.Equal(t, "purchase-order-status", category)
	assert.JSONEq(t, `{"purchaseOrder":"4500000001"}`, determination)
}

func TestLogUsageSwallowsFailure(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var u Usage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		assert.Equal(t, "BILLING", u.SourceService)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c.LogUsage(context.Background(), Usage{Category: "generic-query", DurationMs: 12})
	assert.Equal(t, 1, calls)
}
