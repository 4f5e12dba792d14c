package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/pkg/config"
)

type mockChat struct {
	mock.Mock
}

func (m *mockChat) HandleTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.ChatResponse)
	return resp, args.Error(1)
}

func (m *mockChat) ExtractMail(ctx context.Context, req models.MailRequest) (*models.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.ChatResponse)
	return resp, args.Error(1)
}

func (m *mockChat) History(ctx context.Context, conversationID string) ([]*models.Message, error) {
	args := m.Called(ctx, conversationID)
	messages, _ := args.Get(0).([]*models.Message)
	return messages, args.Error(1)
}

func (m *mockChat) DeleteAll(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func setupServer(t *testing.T) (*mockChat, http.Handler) {
	t.Helper()
	chat := &mockChat{}
	srv := New(config.ServerConfig{Addr: ":0"}, chat, zap.NewNop())
	t.Cleanup(func() { chat.AssertExpectations(t) })
	return chat, srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	_, h := setupServer(t)

	w := do(h, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, h := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}

func TestChat(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("HandleTurn", mock.Anything, models.ChatRequest{
		ConversationID: "c1",
		MessageID:      "m1",
		UserID:         "u1",
		UserQuery:      "download invoice 1234567890",
	}).Return(&models.ChatResponse{
		ConversationID:     "c1",
		Role:               models.RoleAssistant,
		Content:            "here it is",
		MessageTime:        "2024-04-17T10:00:00.000Z",
		MessageID:          "m1",
		AdditionalContents: []any{},
	}, nil)

	w := do(h, http.MethodPost, "/api/chat",
		`{"conversationId":"c1","messageId":"m1","user_id":"u1","user_query":"download invoice 1234567890"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "assistant", body["role"])
	assert.Equal(t, "here it is", body["content"])
	assert.Equal(t, "c1", body["conversationId"])
	assert.Equal(t, []any{}, body["additionalContents"])
}

func TestChatBadRequests(t *testing.T) {
	_, h := setupServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"user_query":`},
		{"missing query", `{"conversationId":"c1"}`},
		{"blank query", `{"user_query":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestChatUnsupportedCategory(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("HandleTurn", mock.Anything, mock.Anything).
		Return(nil, &models.UnsupportedCategoryError{Tag: "weather"})

	w := do(h, http.MethodPost, "/api/chat", `{"user_query":"will it rain"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "weather is not in the supported categories", decodeBody(t, w)["error"])
}

func TestChatFailureIsGeneric(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("HandleTurn", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused"))

	w := do(h, http.MethodPost, "/api/chat", `{"user_query":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Chat turn failed", decodeBody(t, w)["error"])
}

func TestMailExtract(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("ExtractMail", mock.Anything, mock.MatchedBy(func(req models.MailRequest) bool {
		return req.ProjectID == "p1" && req.MailJSON != nil
	})).Return(&models.ChatResponse{
		Role:               models.RoleAssistant,
		Content:            `{"From":"Jane"}`,
		AdditionalContents: []any{},
	}, nil)

	w := do(h, http.MethodPost, "/api/mail/extract",
		`{"projectId":"p1","mail_json":{"from":"Jane"},"expected_fields":["From"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"From":"Jane"}`, decodeBody(t, w)["content"])
}

func TestMailExtractRequiresInput(t *testing.T) {
	_, h := setupServer(t)

	w := do(h, http.MethodPost, "/api/mail/extract", `{"projectId":"p1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory(t *testing.T) {
	chat, h := setupServer(t)
	at := time.Date(2024, 4, 17, 10, 0, 0, 0, time.UTC)
	chat.On("History", mock.Anything, "c1").Return([]*models.Message{
		{ID: "1", ConversationID: "c1", Role: models.RoleUser, Content: "hi", CreatedAt: at},
		{ID: "2", ConversationID: "c1", Role: models.RoleAssistant, Content: "hello", CreatedAt: at.Add(time.Second)},
	}, nil)

	w := do(h, http.MethodGet, "/api/conversations/c1/messages", "")

	require.Equal(t, http.StatusOK, w.Code)
	messages, ok := decodeBody(t, w)["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[1].(map[string]any)["content"])
}

func TestDeleteAll(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("DeleteAll", mock.Anything).Return("Success!", nil)

	w := do(h, http.MethodDelete, "/api/chat-data", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Success!", decodeBody(t, w)["result"])
}

func TestRecoveryFromPanic(t *testing.T) {
	chat, h := setupServer(t)
	chat.On("DeleteAll", mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	})

	w := do(h, http.MethodDelete, "/api/chat-data", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody(t, w)["error"])
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := New(config.ServerConfig{Addr: "127.0.0.1:0"}, &mockChat{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
