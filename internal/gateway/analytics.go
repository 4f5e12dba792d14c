package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xaenox/billing-assistant/internal/normalize"
	"go.uber.org/zap"
)

var (
	customerNameKeys = []string{"CustomerName", "Customer", "Customer_Name", "CUSTOMER", "CustomerDescription"}
	paymentDaysKeys  = []string{
		"Average_Customer_Payment_Days",
		"AverageCustomerPaymentDays",
		"AvgPaymentDays",
		"AveragePaymentDays",
		"Averagecustomerpaymentdays",
	}
)

type CustomerInsight struct {
	Position                   int            `json:"position"`
	CustomerName               string         `json:"customerName"`
	AverageCustomerPaymentDays any            `json:"averageCustomerPaymentDays"`
	Raw                        map[string]any `json:"raw"`
}

// Analysis summarizes an analytics lookup for the prompt.
type Analysis struct {
	Summary            string            `json:"summary"`
	ScopeDescription   string            `json:"scopeDescription"`
	RankingDescription string            `json:"rankingDescription"`
	RankingType        string            `json:"rankingType"`
	OrderDirection     string            `json:"orderDirection"`
	Limit              int               `json:"limit"`
	ClientFilter       string            `json:"clientFilter"`
	LimitProvided      bool              `json:"limitProvided"`
	CustomerInsights   []CustomerInsight `json:"customerInsights"`
	CustomerHighlights []string          `json:"customerHighlights"`
}

// EmptyAnalysis is the zero analysis with empty lists, used when the lookup fails.
func EmptyAnalysis() Analysis {
	return Analysis{
		CustomerInsights:   []CustomerInsight{},
		CustomerHighlights: []string{},
	}
}

type AnalyticsResult struct {
	Data              any                      `json:"data"`
	FormattedURL      string                   `json:"formattedUrl"`
	AppliedParameters normalize.AnalyticsQuery `json:"appliedParameters"`
	Analysis          Analysis                 `json:"analysis"`
}

// CustomerAnalytics parses question, queries the analytics view and ranks
// the returned customers by average payment days.
func (g *Gateway) CustomerAnalytics(ctx context.Context, question string) (*AnalyticsResult, error) {
	q := normalize.ParseAnalyticsQueryFor(question, g.opts.Sectors)
	path := normalize.BuildAnalyticsQuery(g.opts.AnalyticsPath, q)

	g.logger.Info("Querying customer analytics", zap.String("path", path))
	body, err := g.analytics.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("customer analytics: %w", err)
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode analytics response: %w", err)
	}

	insights := extractCustomerInsights(body)
	return &AnalyticsResult{
		Data:              data,
		FormattedURL:      path,
		AppliedParameters: q,
		Analysis:          summarize(q, insights),
	}, nil
}

func extractCustomerInsights(body []byte) []CustomerInsight {
	records := normalize.ODataResults(body)
	out := make([]CustomerInsight, 0, len(records))
	for i, rec := range records {
		days, _ := normalize.PickValue(rec, paymentDaysKeys...)
		out = append(out, CustomerInsight{
			Position:                   i + 1,
			CustomerName:               normalize.PickFirst(rec, customerNameKeys, "Unknown Customer"),
			AverageCustomerPaymentDays: days,
			Raw:                        rec,
		})
	}
	return out
}

func summarize(q normalize.AnalyticsQuery, insights []CustomerInsight) Analysis {
	highlights := make([]string, 0, len(insights))
	for _, in := range insights {
		payment := "N/A"
		if in.AverageCustomerPaymentDays != nil {
			payment = normalize.Stringify(in.AverageCustomerPaymentDays) + " days"
		}
		highlights = append(highlights, fmt.Sprintf("%d. %s - %s", in.Position, in.CustomerName, payment))
	}

	scope := "across all lines of business"
	if q.ClientFilter != "" {
		scope = fmt.Sprintf("within the %s client", q.ClientFilter)
	}
	ranking := fmt.Sprintf("%s %d", q.RankingType, q.Limit)
	noun := "customers"
	if q.Limit == 1 {
		noun = "customer"
	}
	note := ""
	if !q.LimitProvided {
		note = fmt.Sprintf(" (defaulted to %d due to unspecified limit)", normalize.DefaultAnalyticsLimit)
	}

	return Analysis{
		Summary:            fmt.Sprintf("Analyzed the %s %s%s %s based on Average Customer Payment Days.", ranking, noun, note, scope),
		ScopeDescription:   scope,
		RankingDescription: ranking,
		RankingType:        q.RankingType,
		OrderDirection:     q.OrderDirection,
		Limit:              q.Limit,
		ClientFilter:       q.ClientFilter,
		LimitProvided:      q.LimitProvided,
		CustomerInsights:   insights,
		CustomerHighlights: highlights,
	}
}
