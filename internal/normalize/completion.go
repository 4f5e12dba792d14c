package normalize

import (
	"encoding/json"
	"strings"

	"github.com/xaenox/billing-assistant/internal/models"
)

// FallbackCompletionMessage is returned when the RAG engine sends no completion.
const FallbackCompletionMessage = "I was unable to generate a response at this time. Please try again."

// RAGResult is the raw reply of the RAG engine. Completion and
// AdditionalContents arrive either as JSON strings or as JSON values.
type RAGResult struct {
	Completion         json.RawMessage `json:"completion,omitempty"`
	AdditionalContents json.RawMessage `json:"additionalContents,omitempty"`
	Content            string          `json:"content,omitempty"`
}

// NormalizeCompletion coerces the completion into a {role, content} pair.
func NormalizeCompletion(res *RAGResult) models.Completion {
	return NormalizeCompletionWithFallback(res, FallbackCompletionMessage)
}

// NormalizeCompletionWithFallback is NormalizeCompletion with a custom
// message for a missing completion.
func NormalizeCompletionWithFallback(res *RAGResult, fallback string) models.Completion {
	if res == nil || isAbsent(res.Completion) {
		content := fallback
		if res != nil && res.Content != "" {
			content = res.Content
		}
		return models.Completion{Role: models.RoleAssistant, Content: content}
	}

	var text string
	if err := json.Unmarshal(res.Completion, &text); err == nil {
		if c, ok := decodeCompletion([]byte(text)); ok {
			return c
		}
		return models.Completion{Role: models.RoleAssistant, Content: text}
	}

	if c, ok := decodeCompletion(res.Completion); ok {
		return c
	}
	return models.Completion{Role: models.RoleAssistant, Content: string(res.Completion)}
}

// NormalizeAdditionalContents returns the additional contents as a list,
// empty when absent or unparseable.
func NormalizeAdditionalContents(res *RAGResult) []any {
	if res == nil || isAbsent(res.AdditionalContents) {
		return []any{}
	}
	raw := []byte(res.AdditionalContents)

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = []byte(text)
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		return list
	}
	var single map[string]any
	if err := json.Unmarshal(raw, &single); err == nil && single != nil {
		return []any{single}
	}
	return []any{}
}

func decodeCompletion(raw []byte) (models.Completion, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return models.Completion{}, false
	}
	c := models.Completion{
		Role:    PickFirst(obj, []string{"role"}, models.RoleAssistant),
		Content: contentString(obj["content"]),
	}
	return c, true
}

func contentString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return Stringify(t)
	}
}

func isAbsent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
