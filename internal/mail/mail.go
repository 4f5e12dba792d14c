// Package mail builds the field extraction request for an e-mail and
// sanitizes the extracted JSON returned by the RAG engine.
package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xaenox/billing-assistant/internal/normalize"
)

// FallbackMessage replaces a missing completion for mail extraction.
const FallbackMessage = "Unable to extract mail details at this time."

const (
	FieldApplicationType    = "Application Type"
	FieldServiceCategory    = "Service Category"
	fieldServiceSubcategory = "Service Subcategory"

	notApplicable = "NA"
)

var DefaultExpectedFields = []string{
	FieldApplicationType,
	FieldServiceCategory,
	"Entity Name / Business Unit",
	"Case Details",
	"From",
	"From Mail",
	"To Mail",
	"Timestamp",
}

var ApplicationTypes = []string{"Sundry Billing", "Trade Billing", "Receipts Application"}

var (
	billingCategories  = []string{"SB_REQINV", "SB_REQDOC", "SB_CHKINV", "SB_REQAMD", "SB_FIOQUE"}
	receiptsCategories = []string{"RA_REQRPT", "RA_REQREC", "RA_REQBAN", "RA_REQSOA"}

	serviceCategoriesByType = map[string][]string{
		"Sundry Billing":       billingCategories,
		"Trade Billing":        billingCategories,
		"Receipts Application": receiptsCategories,
	}

	// ServiceCategories lists every category once, billing first.
	ServiceCategories = append(append([]string{}, billingCategories...), receiptsCategories...)

	serviceCategoryDescriptions = map[string]string{
		"SB_REQINV": "Request for Invoices / Credit Notes",
		"SB_REQDOC": "Request for Supporting Documents",
		"SB_CHKINV": "Check on Invoice Status",
		"SB_REQAMD": "Request for Invoice Amendment",
		"SB_FIOQUE": "Fiori Related Issues",
		"RA_REQRPT": "Request on Reports",
		"RA_REQREC": "Request on Receipt Status",
		"RA_REQBAN": "Request on Bank Account Details",
		"RA_REQSOA": "Request on Statement of Accounts",
	}

	junkFlags = map[string]bool{"junk": true, "isJunk": true, "phishing": true, "isPhishing": true}

	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// NormalizeExpectedFields accepts a list, a JSON array string or a comma
// separated string. Anything else yields DefaultExpectedFields.
func NormalizeExpectedFields(input any) []string {
	var fields []string
	switch t := input.(type) {
	case []string:
		fields = trimAll(t)
	case []any:
		for _, v := range t {
			fields = append(fields, normalize.Stringify(v))
		}
		fields = trimAll(fields)
	case string:
		s := strings.TrimSpace(t)
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil && len(list) > 0 {
			return NormalizeExpectedFields(list)
		}
		fields = trimAll(strings.Split(s, ","))
	}

	if len(fields) == 0 {
		return append([]string{}, DefaultExpectedFields...)
	}
	return fields
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizePayload turns the mail input into an object. Plain text becomes
// the body.
func NormalizePayload(input any) map[string]any {
	switch t := input.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return map[string]any{}
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(t), &obj); err == nil && obj != nil {
			return obj
		}
		return map[string]any{"body": t}
	default:
		return map[string]any{"body": normalize.Stringify(t)}
	}
}

// FormatForQuery renders the mail as the text the RAG engine retrieves with.
func FormatForQuery(payload map[string]any) string {
	pick := func(keys ...string) string {
		return normalize.PickFirst(payload, keys, "N/A")
	}
	return strings.Join([]string{
		"Subject: " + pick("subject", "mailSubject", "Subject"),
		"From: " + pick("from", "fromName", "senderName", "From"),
		"From Mail: " + pick("fromMail", "fromEmail", "senderEmail", "From Mail"),
		"To Mail: " + pick("toMail", "toEmail", "recipientEmail", "To Mail"),
		"Timestamp: " + pick("timestamp", "sentAt", "date", "Timestamp"),
		"Body:",
		pick("body", "mailBody", "content", "Body"),
	}, "\n")
}

// BuildExtractionPrompt is the instruction listing the allowed values and the
// JSON template the engine must fill.
func BuildExtractionPrompt(projectID, contextType string, fields []string) string {
	if len(fields) == 0 {
		fields = DefaultExpectedFields
	}

	var b strings.Builder
	b.WriteString("You are an AI mail-processing assistant. Extract the requested fields from the mail content provided by the user.\n")
	fmt.Fprintf(&b, "Project ID: %s\n", orNA(projectID))
	fmt.Fprintf(&b, "Context Type: %s\n\n", orNA(contextType))
	b.WriteString(`Rules:
- Return ONLY a JSON object with the exact keys listed below.
- Use the mail subject/body, sender, recipients, and timestamp to infer values.
- If a value is missing or not stated, return an empty string for that key.
- Do not invent details or normalize beyond what is in the mail.
- "Application Type" must be exactly one of the allowed values below. If it is not one of them, return "NA".
- "Service Category" must be exactly one of the allowed values below. If it is not one of them, return "NA".
- For "Sundry Billing" and "Trade Billing", use SB_* service categories. For "Receipts Application", use RA_* service categories.
- If the email appears to be junk, spam, or phishing, return ONLY {"junk": true} and no other keys.

Allowed Application Type values:
`)
	for _, v := range ApplicationTypes {
		fmt.Fprintf(&b, "- %s\n", v)
	}
	b.WriteString("\nAllowed Service Category values:\n")
	for _, v := range ServiceCategories {
		fmt.Fprintf(&b, "- %s (%s)\n", v, serviceCategoryDescriptions[v])
	}
	b.WriteString("\nExpected fields:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nOutput JSON template:\n")
	b.WriteString(encodeOrdered(fields, map[string]any{}, "  "))
	b.WriteString("\n")
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// EnsureJSONContent returns the extraction as a JSON object holding every
// expected field. Junk mail yields {}; unparseable content the empty template.
func EnsureJSONContent(content string, fields []string) string {
	if len(fields) == 0 {
		fields = DefaultExpectedFields
	}

	extracted := extractJSONObject(content)
	if extracted == nil {
		return encodeOrdered(fields, map[string]any{}, "")
	}
	if isJunk(extracted) {
		return "{}"
	}
	return encodeOrdered(fields, sanitize(extracted), "")
}

func extractJSONObject(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	match := jsonObjectRe.FindString(content)
	if match == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(match), &obj); err == nil && obj != nil {
		return obj
	}
	return nil
}

func isJunk(extracted map[string]any) bool {
	for key, value := range extracted {
		if !junkFlags[strings.TrimSpace(key)] {
			continue
		}
		if b, ok := value.(bool); ok {
			if b {
				return true
			}
			continue
		}
		switch strings.ToLower(strings.TrimSpace(normalize.Stringify(value))) {
		case "true", "yes":
			return true
		}
	}
	return false
}

func sanitize(extracted map[string]any) map[string]any {
	out := make(map[string]any, len(extracted))
	for k, v := range extracted {
		out[k] = v
	}

	applicationType := allowedValue(normalize.StringField(extracted, FieldApplicationType), ApplicationTypes)
	serviceCategory := allowedValue(
		normalize.PickFirst(extracted, []string{FieldServiceCategory, fieldServiceSubcategory}, ""),
		ServiceCategories,
	)

	if _, ok := extracted[FieldApplicationType]; ok {
		out[FieldApplicationType] = applicationType
	}
	_, hasCategory := extracted[FieldServiceCategory]
	_, hasLegacy := extracted[fieldServiceSubcategory]
	if hasCategory || hasLegacy {
		out[FieldServiceCategory] = categoryForType(applicationType, serviceCategory)
		delete(out, fieldServiceSubcategory)
	}
	return out
}

// allowedValue matches value case-insensitively against allowed, returning
// the canonical spelling or NA.
func allowedValue(value string, allowed []string) string {
	value = strings.TrimSpace(value)
	for _, a := range allowed {
		if value != "" && strings.EqualFold(a, value) {
			return a
		}
	}
	return notApplicable
}

func categoryForType(applicationType, serviceCategory string) string {
	if applicationType == notApplicable {
		return serviceCategory
	}
	for _, c := range serviceCategoriesByType[applicationType] {
		if c == serviceCategory {
			return serviceCategory
		}
	}
	return notApplicable
}

// encodeOrdered writes an object with fields first, in order, followed by
// the remaining keys of values sorted. Missing fields are empty strings.
func encodeOrdered(fields []string, values map[string]any, indent string) string {
	seen := make(map[string]bool, len(fields))
	keys := make([]string, 0, len(fields)+len(values))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			keys = append(keys, f)
		}
	}
	var extra []string
	for k := range values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent != "" {
			buf.WriteString("\n" + indent)
		}
		v, ok := values[k]
		if !ok {
			v = ""
		}
		buf.Write(marshal(k))
		buf.WriteByte(':')
		if indent != "" {
			buf.WriteByte(' ')
		}
		buf.Write(marshal(v))
	}
	if indent != "" && len(keys) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.String()
}

func marshal(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return []byte(`""`)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
