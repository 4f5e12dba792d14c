package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	RankingTop    = "top"
	RankingBottom = "bottom"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	// DefaultAnalyticsLimit applies when the question names no count.
	DefaultAnalyticsLimit = 5
)

// Sectors holds the client filter values the analytics service knows about.
type Sectors struct {
	Default     string
	Aerospace   string
	Electronics string
}

// DefaultSectors are the filter values of the production analytics view.
var DefaultSectors = Sectors{
	Default:     "Aerospace 288",
	Aerospace:   "Aerospace 288",
	Electronics: "Electronics 288",
}

// AnalyticsQuery is the structured form of a free-text analytics question.
type AnalyticsQuery struct {
	RankingType    string `json:"rankingType"`
	OrderDirection string `json:"orderDirection"`
	Limit          int    `json:"limit"`
	ClientFilter   string `json:"clientFilter"`
	HasCrossLOB    bool   `json:"hasCrossLob"`
	LimitProvided  bool   `json:"limitProvided"`
}

var (
	bottomRankingRe = regexp.MustCompile(`(?i)(bottom|worst|bad|delayed)`)
	explicitLimitRe = regexp.MustCompile(`(?i)(?:top|bottom|best|worst|bad|delayed|on\s*-?time)\s*(\d{1,3})`)
	customerCountRe = regexp.MustCompile(`(?i)(\d{1,3})\s*customers?`)
	crossLOBRe      = regexp.MustCompile(`(?i)(cross[-\s]*lob|across\s+all\s+(?:lines?\s+of\s+business|lobs?)|across\s+lobs?)`)
	electronicsRe   = regexp.MustCompile(`(?i)(\belect|electronics?\s*288)`)
	aerospaceRe     = regexp.MustCompile(`(?i)aero`)
)

// ParseAnalyticsQuery parses text with DefaultSectors.
func ParseAnalyticsQuery(text string) AnalyticsQuery {
	return ParseAnalyticsQueryFor(text, DefaultSectors)
}

// ParseAnalyticsQueryFor derives ranking, limit and client filter from text
// using keyword heuristics.
func ParseAnalyticsQueryFor(text string, sectors Sectors) AnalyticsQuery {
	q := strings.TrimSpace(text)

	out := AnalyticsQuery{
		RankingType:    RankingTop,
		OrderDirection: OrderAsc,
		Limit:          DefaultAnalyticsLimit,
	}
	if bottomRankingRe.MatchString(q) {
		out.RankingType = RankingBottom
		out.OrderDirection = OrderDesc
	}

	m := explicitLimitRe.FindStringSubmatch(q)
	if m == nil {
		m = customerCountRe.FindStringSubmatch(q)
	}
	if m != nil {
		out.LimitProvided = true
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			out.Limit = n
		}
	}

	out.HasCrossLOB = crossLOBRe.MatchString(q)
	switch {
	case out.HasCrossLOB:
		out.ClientFilter = ""
	case electronicsRe.MatchString(q):
		out.ClientFilter = sectors.Electronics
	case aerospaceRe.MatchString(q):
		out.ClientFilter = sectors.Aerospace
	default:
		out.ClientFilter = sectors.Default
	}
	return out
}

// BuildAnalyticsQuery appends the OData query options for q to path.
func BuildAnalyticsQuery(path string, q AnalyticsQuery) string {
	parts := make([]string, 0, 5)
	if q.ClientFilter != "" {
		parts = append(parts, "$filter="+url.PathEscape(fmt.Sprintf("Client eq '%s'", q.ClientFilter)))
	}
	parts = append(parts,
		"$orderby="+url.PathEscape("Average_Customer_Payment_Days "+q.OrderDirection),
		"$count=true",
		fmt.Sprintf("$top=%d", q.Limit),
		"$skip=0",
	)
	return path + "?" + strings.Join(parts, "&")
}
