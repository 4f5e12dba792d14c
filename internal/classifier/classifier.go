package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

// Classification is a classifier verdict. Category is the raw tag and is
// validated by the caller; Determination is the JSON argument object.
type Classification struct {
	Category      string
	Determination string
}

type Classifier interface {
	Classify(ctx context.Context, userQuery, systemPrompt string) (Classification, error)
}

type keywordRule struct {
	category models.Category
	keywords []string
	args     func(query string) map[string]any
}

// KeywordClassifier matches the query against fixed keyword lists. It is the
// fallback when the language model is unavailable.
type KeywordClassifier struct {
	rules []keywordRule
}

func NewKeywordClassifier(profile models.Profile) *KeywordClassifier {
	if profile == models.ProfileMarine {
		return &KeywordClassifier{rules: marineRules}
	}
	return &KeywordClassifier{rules: financeRules}
}

var financeRules = []keywordRule{
	{
		category: models.CategorySOARequest,
		keywords: []string{"statement of account", "soa"},
		args: func(string) map[string]any {
			return map[string]any{"companyCode": "", "customerCode": "", "asOfDate": ""}
		},
	},
	{
		category: models.CategoryDownloadInvoice,
		keywords: []string{"download", "print", "pdf", "link", "copy"},
		args: func(q string) map[string]any {
			return map[string]any{"invoiceNumber": normalize.NormalizeInvoiceNumber(normalize.ExtractInvoiceNumberFromText(q))}
		},
	},
	{
		category: models.CategoryCustomerAnalytics,
		keywords: []string{"best customer", "worst customer", "top customer", "bottom customer", "payment history", "analytics", "payment days"},
		args: func(q string) map[string]any {
			return map[string]any{"analyticsQuery": q}
		},
	},
	{
		category: models.CategoryInvoiceRequest,
		keywords: []string{"invoice"},
		args:     invoiceSearchArgs,
	},
}

var marineRules = []keywordRule{
	{
		category: models.CategoryPurchaseRequisition,
		keywords: []string{"requisition", " pr "},
		args: func(q string) map[string]any {
			return map[string]any{"purchaseRequisition": normalize.ExtractInvoiceNumberFromText(q)}
		},
	},
	{
		category: models.CategoryInvoiceStatus,
		keywords: []string{"invoice", "payment"},
		args: func(q string) map[string]any {
			return map[string]any{"purchaseOrder": normalize.ExtractInvoiceNumberFromText(q)}
		},
	},
	{
		category: models.CategoryPurchaseOrderStatus,
		keywords: []string{"purchase order", " po "},
		args: func(q string) map[string]any {
			return map[string]any{"purchaseOrder": normalize.ExtractInvoiceNumberFromText(q)}
		},
	},
	{
		category: models.CategoryStatusClarification,
		keywords: []string{"status"},
		args: func(q string) map[string]any {
			return map[string]any{"referenceNumber": normalize.ExtractInvoiceNumberFromText(q)}
		},
	},
}

// invoiceSearchArgs builds a search filter only when the query carries an
// invoice number to derive the company code and fiscal year from.
func invoiceSearchArgs(q string) map[string]any {
	number := normalize.NormalizeInvoiceNumber(normalize.ExtractInvoiceNumberFromText(q))
	if number == "" {
		return nil
	}
	return map[string]any{
		"query": fmt.Sprintf("InvoiceNo='%s'&InvoiceType='FI'&FiscalYear='20%s'&DateFrom=''&DateTo=''&SalesOrder=''&CompanyCode='%s'",
			number, number[1:3], number[3:6]),
	}
}

func (c *KeywordClassifier) Classify(_ context.Context, userQuery, _ string) (Classification, error) {
	content := " " + strings.ToLower(userQuery) + " "
	for _, rule := range c.rules {
		for _, keyword := range rule.keywords {
			if !strings.Contains(content, keyword) {
				continue
			}
			args := rule.args(userQuery)
			if args == nil {
				break
			}
			return newClassification(rule.category, args), nil
		}
	}
	return newClassification(models.CategoryGenericQuery, map[string]any{}), nil
}

func newClassification(category models.Category, args map[string]any) Classification {
	args["category"] = string(category)
	b, _ := json.Marshal(args)
	return Classification{Category: string(category), Determination: string(b)}
}
