package normalize

import "encoding/json"

// ODataResults returns the record list of an OData V2 ({d:{results}}) or V4
// ({value}) document, or of a bare JSON array. Non-object records are dropped.
func ODataResults(body []byte) []map[string]any {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return []map[string]any{}
	}

	var records []any
	switch t := doc.(type) {
	case []any:
		records = t
	case map[string]any:
		if v, ok := t["value"].([]any); ok {
			records = v
		} else if d, ok := t["d"].(map[string]any); ok {
			records, _ = d["results"].([]any)
		}
	}

	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
