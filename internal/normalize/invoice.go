package normalize

import (
	"regexp"
	"strings"
)

// InvoiceNumberLength is the fixed width of backend invoice ids.
const InvoiceNumberLength = 10

var digitRunRe = regexp.MustCompile(`\d+`)

// NormalizeInvoiceNumber strips non-digits and returns the last ten digits,
// left padded with zeros. It returns "" when raw has no digits.
func NormalizeInvoiceNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) > InvoiceNumberLength {
		digits = digits[len(digits)-InvoiceNumberLength:]
	}
	return strings.Repeat("0", InvoiceNumberLength-len(digits)) + digits
}

// ExtractInvoiceNumberFromText returns the longest digit run in text, the
// first one on ties.
func ExtractInvoiceNumberFromText(text string) string {
	best := ""
	for _, run := range digitRunRe.FindAllString(text, -1) {
		if len(run) > len(best) {
			best = run
		}
	}
	return best
}
