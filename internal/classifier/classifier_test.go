package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
)

func determination(t *testing.T, c Classification) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.Determination), &out))
	return out
}

func TestKeywordClassifierFinance(t *testing.T) {
	k := NewKeywordClassifier(models.ProfileFinance)
	ctx := context.Background()

	tests := []struct {
		query    string
		category models.Category
	}{
		{"Please share the download link for invoice 248013029.", models.CategoryDownloadInvoice},
		{"Please share the SOA for customer 100252", models.CategorySOARequest},
		{"Who is our worst customer by payment days?", models.CategoryCustomerAnalytics},
		{"Details for invoice 248013075", models.CategoryInvoiceRequest},
		{"What is the invoice search policy?", models.CategoryGenericQuery},
		{"hello", models.CategoryGenericQuery},
	}
	for _, tt := range tests {
		got, err := k.Classify(ctx, tt.query, "")
		require.NoError(t, err)
		assert.Equal(t, string(tt.category), got.Category, tt.query)
		assert.Equal(t, string(tt.category), determination(t, got)["category"])
	}

	got, _ := k.Classify(ctx, "Please share the download link for invoice 248013029.", "")
	assert.Equal(t, "0248013029", determination(t, got)["invoiceNumber"])

	got, _ = k.Classify(ctx, "Details for invoice 248013075", "")
	assert.Equal(t, "InvoiceNo='0248013075'&InvoiceType='FI'&FiscalYear='2024'&DateFrom=''&DateTo=''&SalesOrder=''&CompanyCode='801'", determination(t, got)["query"])
}

func TestKeywordClassifierMarine(t *testing.T) {
	k := NewKeywordClassifier(models.ProfileMarine)
	ctx := context.Background()

	got, err := k.Classify(ctx, "Status of purchase order 4500000123", "")
	require.NoError(t, err)
	assert.Equal(t, string(models.CategoryPurchaseOrderStatus), got.Category)
	assert.Equal(t, "4500000123", determination(t, got)["purchaseOrder"])

	got, _ = k.Classify(ctx, "Where is the invoice for PO 4500000123?", "")
	assert.Equal(t, string(models.CategoryInvoiceStatus), got.Category)

	got, _ = k.Classify(ctx, "purchase requisition 10001234 status", "")
	assert.Equal(t, string(models.CategoryPurchaseRequisition), got.Category)
	assert.Equal(t, "10001234", determination(t, got)["purchaseRequisition"])

	got, _ = k.Classify(ctx, "What's the status of 998877?", "")
	assert.Equal(t, string(models.CategoryStatusClarification), got.Category)
	assert.Equal(t, "998877", determination(t, got)["referenceNumber"])
}

func fakeOpenAI(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"unavailable","type":"server_error"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}}},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGPT(srv *httptest.Server, fallback Classifier) *GPTClassifier {
	return NewGPTClassifier(GPTConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", MaxTokens: 300}, fallback, zap.NewNop())
}

func TestGPTClassifierStripsCodeFences(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, "```json\n{\"category\":\"download-invoice\",\"invoiceNumber\":\"0248013029\"}\n```")

	got, err := newTestGPT(srv, nil).Classify(context.Background(), "download 248013029", "classify")
	require.NoError(t, err)
	assert.Equal(t, "download-invoice", got.Category)
	assert.Equal(t, "0248013029", determination(t, got)["invoiceNumber"])
}

func TestGPTClassifierFallsBackOnBadJSON(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, "I think this is a download request")

	got, err := newTestGPT(srv, NewKeywordClassifier(models.ProfileFinance)).Classify(context.Background(), "download invoice 248013029", "classify")
	require.NoError(t, err)
	assert.Equal(t, string(models.CategoryDownloadInvoice), got.Category)
}

func TestGPTClassifierErrorWithoutFallback(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusInternalServerError, "")

	_, err := newTestGPT(srv, nil).Classify(context.Background(), "hello", "classify")
	assert.Error(t, err)
}

type stubRemote struct {
	category, determination string
	err                     error
}

func (s stubRemote) ClassifyUserQuery(context.Context, string, string) (string, string, error) {
	return s.category, s.determination, s.err
}

func TestEngineClassifier(t *testing.T) {
	ctx := context.Background()

	ok := NewEngineClassifier(stubRemote{category: "invoice-status", determination: `{"purchaseOrder":"1"}`}, nil, zap.NewNop())
	got, err := ok.Classify(ctx, "q", "p")
	require.NoError(t, err)
	assert.Equal(t, Classification{Category: "invoice-status", Determination: `{"purchaseOrder":"1"}`}, got)

	failing := stubRemote{err: errors.New("down")}
	_, err = NewEngineClassifier(failing, nil, zap.NewNop()).Classify(ctx, "q", "p")
	assert.Error(t, err)

	got, err = NewEngineClassifier(failing, NewKeywordClassifier(models.ProfileMarine), zap.NewNop()).Classify(ctx, "status of requisition 12", "p")
	require.NoError(t, err)
	assert.Equal(t, string(models.CategoryPurchaseRequisition), got.Category)
}
