package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/billing-assistant/internal/normalize"
	"go.uber.org/zap"
)

const (
	soaService = "/sap/opu/odata/sap/ZFI_AR_SOA_FORM_SRV"

	msgSOAUnavailable = "Unable to validate the provided customer details at this time. Please try again later."
)

// SOAValidation is the backend verdict on a statement of account request.
type SOAValidation struct {
	normalize.BackendStatus
	FormattedDate string
}

type soaKeys struct {
	companyCode  string
	customerCode string
	date         string
}

func newSOAKeys(companyCode, customerCode, asOfDate string) (soaKeys, bool) {
	k := soaKeys{
		companyCode:  strings.TrimSpace(companyCode),
		customerCode: strings.TrimSpace(customerCode),
		date:         normalize.NormalizeDate(asOfDate),
	}
	return k, k.companyCode != "" && k.customerCode != "" && k.date != ""
}

func (g *Gateway) soaPath(set string, k soaKeys) string {
	return fmt.Sprintf("%s/%s(ICompany='%s',ICustomer='%s',IOpendate='%s',ISystemAlias='%s')",
		soaService, set, k.companyCode, k.customerCode, k.date, g.opts.SystemAlias)
}

// ValidateStatementOfAccount checks that a statement exists for the customer
// as of the given date. Missing inputs yield an empty status.
func (g *Gateway) ValidateStatementOfAccount(ctx context.Context, companyCode, customerCode, asOfDate string) SOAValidation {
	k, ok := newSOAKeys(companyCode, customerCode, asOfDate)
	out := SOAValidation{FormattedDate: k.date}
	if !ok {
		return out
	}

	body, err := g.documents.Get(ctx, g.soaPath("get_pdfstatusSet", k))
	if err != nil {
		g.logger.Error("Statement of account validation failed",
			zap.String("company_code", k.companyCode),
			zap.String("customer_code", k.customerCode),
			zap.Error(err))
		out.BackendStatus = normalize.BackendStatus{Status: normalize.StatusError, Message: msgSOAUnavailable}
		return out
	}

	out.BackendStatus = normalize.ParseStatusResponse(body)
	return out
}

// StatementOfAccountLink builds the statement PDF link and probes it once.
// The link is empty unless all inputs are present.
func (g *Gateway) StatementOfAccountLink(ctx context.Context, companyCode, customerCode, asOfDate string) (DownloadLink, string) {
	k, ok := newSOAKeys(companyCode, customerCode, asOfDate)
	if !ok {
		return DownloadLink{}, k.date
	}

	link := g.link(g.soaPath("get_pdfSet", k) + "/$value")
	link.Reachable = g.probe(ctx, link.Path)
	return link, k.date
}
