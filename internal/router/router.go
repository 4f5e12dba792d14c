// Package router dispatches a classified query to its category handler. A
// handler either answers deterministically or prepares the prompt for the RAG
// engine with normalized backend data attached.
package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/gateway"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/prompts"
)

// Gateway is the backend surface the handlers use.
type Gateway interface {
	SearchInvoices(ctx context.Context, filterQuery string) ([]map[string]any, error)
	ValidateInvoice(ctx context.Context, invoiceNumber string) gateway.InvoiceValidation
	InvoiceDownloadLink(ctx context.Context, invoiceNumber string) gateway.DownloadLink
	ValidateStatementOfAccount(ctx context.Context, companyCode, customerCode, asOfDate string) gateway.SOAValidation
	StatementOfAccountLink(ctx context.Context, companyCode, customerCode, asOfDate string) (gateway.DownloadLink, string)
	CustomerAnalytics(ctx context.Context, question string) (*gateway.AnalyticsResult, error)
	PurchaseOrderStatus(ctx context.Context, purchaseOrder string) gateway.ProcurementStatus
	InvoiceStatus(ctx context.Context, purchaseOrder string) gateway.ProcurementStatus
	PurchaseRequisitionStatus(ctx context.Context, purchaseRequisition string) gateway.ProcurementStatus
}

// Result is the outcome of routing. Exactly one of Deterministic or Prompt
// is set; Context is the data merged into Prompt.
type Result struct {
	Prompt        string
	Context       any
	Deterministic *models.Completion
}

// IsDeterministic reports whether the RAG call is skipped.
func (r *Result) IsDeterministic() bool {
	return r.Deterministic != nil
}

type Router struct {
	gw      Gateway
	prompts *prompts.Composer
	logger  *zap.Logger
}

func New(gw Gateway, composer *prompts.Composer, logger *zap.Logger) *Router {
	return &Router{gw: gw, prompts: composer, logger: logger}
}

// Route runs the handler of category. Unknown categories fail with
// *models.UnsupportedCategoryError.
func (r *Router) Route(ctx context.Context, category models.Category, payload map[string]any, userQuery string) (*Result, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	switch category {
	case models.CategoryInvoiceRequest:
		return r.invoiceSearch(ctx, payload), nil
	case models.CategoryDownloadInvoice:
		return r.downloadInvoice(ctx, payload, userQuery), nil
	case models.CategorySOARequest:
		return r.statementOfAccount(ctx, payload), nil
	case models.CategoryCustomerAnalytics:
		return r.customerAnalytics(ctx, payload, userQuery), nil
	case models.CategoryPurchaseOrderStatus:
		return r.purchaseOrderStatus(ctx, payload), nil
	case models.CategoryInvoiceStatus:
		return r.invoiceStatus(ctx, payload), nil
	case models.CategoryPurchaseRequisition:
		return r.purchaseRequisitionStatus(ctx, payload), nil
	case models.CategoryStatusClarification:
		return r.statusClarification(payload), nil
	case models.CategoryGenericQuery:
		return &Result{Prompt: r.prompts.Base(category)}, nil
	default:
		return nil, &models.UnsupportedCategoryError{Tag: string(category)}
	}
}

func (r *Router) withContext(category models.Category, data any) *Result {
	return &Result{Prompt: r.prompts.Compose(category, data), Context: data}
}

func reply(content string) *Result {
	return &Result{Deterministic: &models.Completion{Role: models.RoleAssistant, Content: content}}
}
