package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	StatusSuccess = "S"
	StatusError   = "E"

	unprocessableStatusMessage = "Unable to process the validation response."
)

// BackendStatus is the success/error signal of a backend validation call.
type BackendStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports a successful validation.
func (s BackendStatus) OK() bool { return s.Status == StatusSuccess }

// Failed reports a validation error.
func (s BackendStatus) Failed() bool { return s.Status == StatusError }

var (
	statusTagRe  = regexp.MustCompile(`(?is)<d:EStatus>(.*?)</d:EStatus>`)
	messageTagRe = regexp.MustCompile(`(?is)<d:EStatusMessage>(.*?)</d:EStatusMessage>`)
)

// ParseStatusResponse extracts EStatus/EStatusMessage from a decoded object,
// a JSON document or an OData XML body. It fails closed with an "E" status
// when nothing can be extracted.
func ParseStatusResponse(payload any) BackendStatus {
	switch p := payload.(type) {
	case map[string]any:
		if st := statusFromObject(p); st.Status != "" {
			return st
		}
	case json.RawMessage:
		return parseStatusText(string(p))
	case []byte:
		return parseStatusText(string(p))
	case string:
		return parseStatusText(p)
	}
	return BackendStatus{Status: StatusError, Message: unprocessableStatusMessage}
}

func parseStatusText(text string) BackendStatus {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			if obj, ok := decoded.(map[string]any); ok {
				if st := statusFromObject(obj); st.Status != "" {
					return st
				}
			}
		}
	}

	status := tagValue(statusTagRe, trimmed)
	message := tagValue(messageTagRe, trimmed)
	if status != "" {
		return BackendStatus{Status: status, Message: message}
	}
	if message == "" {
		message = unprocessableStatusMessage
	}
	return BackendStatus{Status: StatusError, Message: message}
}

func statusFromObject(obj map[string]any) BackendStatus {
	node := obj
	if d, ok := obj["d"].(map[string]any); ok {
		node = d
	}
	return BackendStatus{
		Status:  PickFirst(node, []string{"EStatus", "status"}, ""),
		Message: PickFirst(node, []string{"EStatusMessage", "message"}, ""),
	}
}

func tagValue(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
