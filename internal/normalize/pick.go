// Package normalize holds the pure, total helpers that canonicalize classifier
// arguments and backend payloads. None of them return errors; malformed input
// yields an empty or default value.
package normalize

import (
	"fmt"
	"strings"
)

// PickFirst returns the first key of keys whose value in m is present and not
// blank, formatted as a string. It returns fallback when no key matches.
func PickFirst(m map[string]any, keys []string, fallback string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(Stringify(v))
		if s != "" {
			return s
		}
	}
	return fallback
}

// PickValue returns the first non-nil value among keys. Unlike PickFirst,
// zero and empty values count as present.
func PickValue(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Stringify renders a decoded JSON scalar without float noise.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// StringField reads a trimmed string argument from a classifier payload.
func StringField(payload map[string]any, key string) string {
	return PickFirst(payload, []string{key}, "")
}
