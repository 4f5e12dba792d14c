package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/billing-assistant/internal/normalize"
	"go.uber.org/zap"
)

const (
	invoiceSearchService = "/sap/opu/odata/sap/ZFI_OTC_CREDITNOTE_SRV;mo/GetInvoiceSearchResult"
	invoicePDFService    = "/sap/opu/odata/sap/ZFI_OTC_FORM_INVOICE_PDF_SRV"

	msgInvoiceUnderivable = "Unable to derive the required details from the provided invoice number."
	msgInvoiceUnavailable = "Unable to validate the invoice number at this time. Please try again later."
)

// InvoiceValidation is the backend verdict on an invoice document.
type InvoiceValidation struct {
	normalize.BackendStatus
	CompanyCode string
	FiscalYear  string
}

// invoiceKeys derives the document keys encoded in an invoice number: the
// fiscal year from characters 1-2 and the company code from characters 3-5.
func invoiceKeys(invoiceNumber string) (companyCode, fiscalYear string, ok bool) {
	if len(invoiceNumber) < 6 {
		return "", "", false
	}
	return invoiceNumber[3:6], "20" + invoiceNumber[1:3], true
}

func (g *Gateway) invoicePDFPath(set, invoiceNumber, companyCode, fiscalYear string) string {
	return fmt.Sprintf("%s/%s(IBlart='RI',ICompany='%s',IDocno='%s',IFiscalYear='%s',ISystemAlias='%s')",
		invoicePDFService, set, companyCode, invoiceNumber, fiscalYear, g.opts.SystemAlias)
}

// SearchInvoices runs the invoice search with a classifier-built filter such
// as InvoiceNo=''&FiscalYear='2024'&CompanyCode='801'.
func (g *Gateway) SearchInvoices(ctx context.Context, filterQuery string) ([]map[string]any, error) {
	path := fmt.Sprintf("%s?sap-client=%s&%s&SAP__Origin='%s'&skip=0&top=5&$format=json",
		invoiceSearchService, g.opts.SAPClient, strings.TrimSpace(filterQuery), g.opts.SystemAlias)

	body, err := g.documents.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("invoice search: %w", err)
	}
	return normalize.ODataResults(body), nil
}

// ValidateInvoice asks the PDF status service whether the invoice document
// exists. An empty number yields an empty status.
func (g *Gateway) ValidateInvoice(ctx context.Context, invoiceNumber string) InvoiceValidation {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return InvoiceValidation{}
	}

	companyCode, fiscalYear, ok := invoiceKeys(invoiceNumber)
	if !ok {
		return InvoiceValidation{
			BackendStatus: normalize.BackendStatus{Status: normalize.StatusError, Message: msgInvoiceUnderivable},
		}
	}

	out := InvoiceValidation{CompanyCode: companyCode, FiscalYear: fiscalYear}
	body, err := g.documents.Get(ctx, g.invoicePDFPath("get_pdfstatusSet", invoiceNumber, companyCode, fiscalYear))
	if err != nil {
		g.logger.Error("Invoice validation failed", zap.String("invoice_number", invoiceNumber), zap.Error(err))
		out.BackendStatus = normalize.BackendStatus{Status: normalize.StatusError, Message: msgInvoiceUnavailable}
		return out
	}

	out.BackendStatus = normalize.ParseStatusResponse(body)
	return out
}

// InvoiceDownloadLink builds the invoice PDF link and probes it once.
func (g *Gateway) InvoiceDownloadLink(ctx context.Context, invoiceNumber string) DownloadLink {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	companyCode, fiscalYear, ok := invoiceKeys(invoiceNumber)
	if !ok {
		return DownloadLink{}
	}

	link := g.link(g.invoicePDFPath("get_pdfSet", invoiceNumber, companyCode, fiscalYear) + "/$value")
	link.Reachable = g.probe(ctx, link.Path)
	return link
}

func (g *Gateway) probe(ctx context.Context, path string) bool {
	if _, err := g.documents.Get(ctx, path); err != nil {
		g.logger.Warn("Document link probe failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
