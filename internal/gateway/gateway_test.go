package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaenox/billing-assistant/internal/normalize"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  http.HandlerFunc
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeBackend) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.URL.Path)
	}
	return out
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{handler: handler}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	limiter := rate.NewLimiter(rate.Inf, 1)
	client := func(name string) *Client {
		return NewClient(Destination{Name: name, URL: srv.URL, Authorization: "Basic dGVzdA=="}, srv.Client(), limiter, logger)
	}
	g := New(client("documents"), client("analytics"), client("procurement"), Options{
		SystemAlias:      "AERO288",
		ProcurementAlias: "MRNE188",
		SAPClient:        "888",
		LinkBaseURL:      "https://files.example.com",
		AnalyticsPath:    "/api/v1/consumption/KPI",
	}, logger)
	return g, backend
}

func TestValidateInvoiceDerivesKeys(t *testing.T) {
	g, backend := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic dGVzdA==", r.Header.Get("Authorization"))
		w.Write([]byte(`<entry><d:EStatus>S</d:EStatus><d:EStatusMessage>Available</d:EStatusMessage></entry>`))
	})

	got := g.ValidateInvoice(context.Background(), "0248013075")
	assert.Equal(t, normalize.StatusSuccess, got.Status)
	assert.Equal(t, "Available", got.Message)
	assert.Equal(t, "801", got.CompanyCode)
	assert.Equal(t, "2024", got.FiscalYear)

	paths := backend.paths()
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "get_pdfstatusSet(IBlart='RI',ICompany='801',IDocno='0248013075',IFiscalYear='2024',ISystemAlias='AERO288')")
}

func TestValidateInvoiceShortAndEmpty(t *testing.T) {
	g, backend := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call %s", r.URL.Path)
	})

	assert.Equal(t, InvoiceValidation{}, g.ValidateInvoice(context.Background(), "  "))

	short := g.ValidateInvoice(context.Background(), "12345")
	assert.Equal(t, normalize.StatusError, short.Status)
	assert.Equal(t, msgInvoiceUnderivable, short.Message)
	assert.Empty(t, backend.paths())
}

func TestValidateInvoiceBackendFailure(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	got := g.ValidateInvoice(context.Background(), "0248013075")
	assert.Equal(t, normalize.StatusError, got.Status)
	assert.Equal(t, msgInvoiceUnavailable, got.Message)
	assert.Equal(t, "801", got.CompanyCode)
}

func TestInvoiceDownloadLink(t *testing.T) {
	g, backend := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	})

	link := g.InvoiceDownloadLink(context.Background(), "0248013075")
	assert.True(t, link.Reachable)
	assert.True(t, link.Available())
	assert.True(t, strings.HasPrefix(link.URL, "https://files.example.com/sap/opu/odata/sap/ZFI_OTC_FORM_INVOICE_PDF_SRV/get_pdfSet("))
	assert.True(t, strings.HasSuffix(link.URL, "/$value"))
	require.Len(t, backend.paths(), 1)

	assert.Equal(t, DownloadLink{}, g.InvoiceDownloadLink(context.Background(), "123"))
}

func TestStatementOfAccount(t *testing.T) {
	g, backend := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "get_pdfstatusSet") {
			w.Write([]byte(`{"d":{"EStatus":"E","EStatusMessage":"No open items"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	v := g.ValidateStatementOfAccount(ctx, " 808 ", "100252", "2nd May 2017")
	assert.Equal(t, "20170502", v.FormattedDate)
	assert.Equal(t, normalize.StatusError, v.Status)
	assert.Equal(t, "No open items", v.Message)
	assert.Contains(t, backend.paths()[0], "ICompany='808',ICustomer='100252',IOpendate='20170502'")

	link, date := g.StatementOfAccountLink(ctx, "808", "100252", "2017-05-02")
	assert.Equal(t, "20170502", date)
	assert.False(t, link.Reachable)
	assert.NotEmpty(t, link.URL)
	assert.False(t, link.Available())

	missing := g.ValidateStatementOfAccount(ctx, "808", "", "2017-05-02")
	assert.Equal(t, "", missing.Status)
	assert.Equal(t, "20170502", missing.FormattedDate)
	assert.Len(t, backend.paths(), 2)
}

func TestSearchInvoices(t *testing.T) {
	g, backend := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "888", r.URL.Query().Get("sap-client"))
		assert.Equal(t, "'801'", r.URL.Query().Get("CompanyCode"))
		w.Write([]byte(`{"d":{"results":[{"AccountingDocument":"248013000"},{"AccountingDocument":"248013001"}]}}`))
	})

	got, err := g.SearchInvoices(context.Background(), "InvoiceNo=''&FiscalYear='2024'&CompanyCode='801'")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "248013001", got[1]["AccountingDocument"])
	assert.Equal(t, []string{invoiceSearchService}, backend.paths())
}

func TestCustomerAnalytics(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/consumption/KPI", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("$top"))
		w.Write([]byte(`{"value":[{"CustomerName":"Acme","Average_Customer_Payment_Days":42},{"Customer":"Globex"}]}`))
	})

	res, err := g.CustomerAnalytics(context.Background(), "bottom 3 customers")
	require.NoError(t, err)
	assert.Equal(t, normalize.RankingBottom, res.AppliedParameters.RankingType)

	a := res.Analysis
	assert.Equal(t, []string{"1. Acme - 42 days", "2. Globex - N/A"}, a.CustomerHighlights)
	assert.Equal(t, "Analyzed the bottom 3 customers within the Aerospace 288 client based on Average Customer Payment Days.", a.Summary)
	assert.Equal(t, "bottom 3", a.RankingDescription)
}

func TestCustomerAnalyticsDefaultLimitNote(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	})

	res, err := g.CustomerAnalytics(context.Background(), "best customers across all lines of business")
	require.NoError(t, err)
	assert.Equal(t, "Analyzed the top 5 customers (defaulted to 5 due to unspecified limit) across all lines of business based on Average Customer Payment Days.", res.Analysis.Summary)
	assert.Empty(t, res.Analysis.CustomerInsights)
}

func TestCustomerAnalyticsFailure(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := g.CustomerAnalytics(context.Background(), "top 2 customers")
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestProcurementStatus(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MRNE188", r.URL.Query().Get("ISystemAlias"))
		switch {
		case r.URL.Path == "/ptp/invoicestatus":
			w.Write([]byte(`{"success":true,"items":[]}`))
		case r.URL.Query().Get("PurchaseOrder") == "4500000001":
			w.Write([]byte(`{"success":true,"message":"ok","poItems":[{"ebelp":"10","poStatus":"Open"}]}`))
		default:
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	})
	ctx := context.Background()

	po := g.PurchaseOrderStatus(ctx, "4500000001")
	assert.True(t, po.Success)
	assert.Equal(t, "ok", po.Message)
	require.Len(t, po.POItems, 1)

	inv := g.InvoiceStatus(ctx, "4500000001")
	assert.False(t, inv.Success)

	pr := g.PurchaseRequisitionStatus(ctx, "10000001")
	assert.Equal(t, ProcurementStatus{Message: msgNoBackendResponse}, pr)

	assert.Equal(t, msgPurchaseOrderMissing, g.PurchaseOrderStatus(ctx, "").Message)
	assert.Equal(t, msgPurchaseRequisitionMissing, g.PurchaseRequisitionStatus(ctx, "").Message)
}
