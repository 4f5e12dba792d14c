package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/gateway"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

const (
	msgAskInvoiceNumber   = "Please provide the invoice number required for the download."
	msgInvoiceUnavailable = "The requested invoice is not available for download."
	msgSOAUnavailable     = "The requested statement of account is not available."
)

func (r *Router) invoiceSearch(ctx context.Context, payload map[string]any) *Result {
	filter := normalize.StringField(payload, "query")
	invoices, err := r.gw.SearchInvoices(ctx, filter)
	if err != nil {
		r.logger.Error("Invoice search failed", zap.String("filter", filter), zap.Error(err))
		invoices = []map[string]any{}
	}
	return r.withContext(models.CategoryInvoiceRequest, invoices)
}

type downloadContext struct {
	InvoiceNumber string `json:"invoiceNumber"`
	DownloadURL   string `json:"downloadUrl"`
}

func (r *Router) downloadInvoice(ctx context.Context, payload map[string]any, userQuery string) *Result {
	invoiceNumber := normalize.NormalizeInvoiceNumber(normalize.StringField(payload, "invoiceNumber"))
	if invoiceNumber == "" {
		invoiceNumber = normalize.NormalizeInvoiceNumber(normalize.ExtractInvoiceNumberFromText(userQuery))
	}
	if invoiceNumber == "" {
		return reply(msgAskInvoiceNumber)
	}

	validation := r.gw.ValidateInvoice(ctx, invoiceNumber)
	if validation.Failed() {
		return reply(orDefault(validation.Message, msgInvoiceUnavailable))
	}

	link := r.gw.InvoiceDownloadLink(ctx, invoiceNumber)
	if validation.OK() && link.Available() {
		return reply(fmt.Sprintf("<href>%s</href>\n\n<href-value>%s</href-value>", invoiceNumber, link.URL))
	}

	r.logger.Info("Invoice validation inconclusive",
		zap.String("invoice_number", invoiceNumber),
		zap.String("status", validation.Status),
		zap.Bool("link_reachable", link.Reachable))
	return r.withContext(models.CategoryDownloadInvoice, downloadContext{InvoiceNumber: invoiceNumber, DownloadURL: link.URL})
}

type soaContext struct {
	CompanyCode   string `json:"companyCode"`
	CustomerCode  string `json:"customerCode"`
	AsOfDate      string `json:"asOfDate"`
	FormattedDate string `json:"formattedDate"`
	DownloadURL   string `json:"downloadUrl"`
}

func (r *Router) statementOfAccount(ctx context.Context, payload map[string]any) *Result {
	sc := soaContext{
		CompanyCode:  normalize.StringField(payload, "companyCode"),
		CustomerCode: normalize.StringField(payload, "customerCode"),
		AsOfDate:     normalize.StringField(payload, "asOfDate"),
	}
	sc.FormattedDate = normalize.NormalizeDate(sc.AsOfDate)

	if missing := missingSOAFields(sc); len(missing) > 0 {
		return reply(fmt.Sprintf("Please provide the %s to retrieve the statement of account.", joinFields(missing)))
	}

	validation := r.gw.ValidateStatementOfAccount(ctx, sc.CompanyCode, sc.CustomerCode, sc.AsOfDate)
	if validation.Failed() {
		return reply(orDefault(validation.Message, msgSOAUnavailable))
	}

	link, _ := r.gw.StatementOfAccountLink(ctx, sc.CompanyCode, sc.CustomerCode, sc.AsOfDate)
	if validation.OK() && link.Available() {
		return reply(fmt.Sprintf("<href>StatementOfAccount</href>\n\n<href-value>%s</href-value>", link.URL))
	}

	sc.DownloadURL = link.URL
	return r.withContext(models.CategorySOARequest, sc)
}

func missingSOAFields(sc soaContext) []string {
	var missing []string
	if sc.CompanyCode == "" {
		missing = append(missing, "company code")
	}
	if sc.CustomerCode == "" {
		missing = append(missing, "customer code")
	}
	switch {
	case sc.AsOfDate == "":
		missing = append(missing, "as-of date")
	case sc.FormattedDate == "":
		missing = append(missing, "as-of date in a recognizable format")
	}
	return missing
}

func joinFields(fields []string) string {
	if len(fields) == 1 {
		return fields[0]
	}
	return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
}

type analyticsContext struct {
	AnalyticsQuery    string           `json:"analyticsQuery"`
	ServiceResponse   any              `json:"serviceResponse"`
	ServiceURL        string           `json:"serviceUrl"`
	AppliedParameters any              `json:"appliedParameters"`
	Analysis          gateway.Analysis `json:"analysis"`
}

func (r *Router) customerAnalytics(ctx context.Context, payload map[string]any, userQuery string) *Result {
	question := normalize.PickFirst(payload, []string{"analyticsQuery"}, userQuery)

	ac := analyticsContext{AnalyticsQuery: question}
	res, err := r.gw.CustomerAnalytics(ctx, question)
	if err != nil {
		r.logger.Error("Customer analytics lookup failed", zap.String("question", question), zap.Error(err))
		ac.ServiceResponse = []any{}
		ac.AppliedParameters = map[string]any{}
		ac.Analysis = gateway.EmptyAnalysis()
	} else {
		ac.ServiceResponse = res.Data
		ac.ServiceURL = res.FormattedURL
		ac.AppliedParameters = res.AppliedParameters
		ac.Analysis = res.Analysis
	}
	return r.withContext(models.CategoryCustomerAnalytics, ac)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
