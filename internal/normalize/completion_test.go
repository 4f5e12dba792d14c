package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/billing-assistant/internal/models"
)

func TestNormalizeCompletion(t *testing.T) {
	obj := &RAGResult{Completion: json.RawMessage(`{"role":"assistant","content":"Hello"}`)}
	assert.Equal(t, models.Completion{Role: "assistant", Content: "Hello"}, NormalizeCompletion(obj))

	str := &RAGResult{Completion: json.RawMessage(`"{\"role\":\"assistant\",\"content\":\"From string\"}"`)}
	assert.Equal(t, "From string", NormalizeCompletion(str).Content)

	plain := &RAGResult{Completion: json.RawMessage(`"just text"`)}
	assert.Equal(t, models.Completion{Role: "assistant", Content: "just text"}, NormalizeCompletion(plain))

	missing := &RAGResult{}
	assert.Equal(t, FallbackCompletionMessage, NormalizeCompletion(missing).Content)
	assert.Equal(t, "assistant", NormalizeCompletion(nil).Role)

	withContent := &RAGResult{Completion: json.RawMessage("null"), Content: "inline"}
	assert.Equal(t, "inline", NormalizeCompletion(withContent).Content)

	noRole := &RAGResult{Completion: json.RawMessage(`{"content":{"a":"b"}}`)}
	assert.Equal(t, models.Completion{Role: "assistant", Content: `{"a":"b"}`}, NormalizeCompletion(noRole))
}

func TestNormalizeAdditionalContents(t *testing.T) {
	assert.Equal(t, []any{}, NormalizeAdditionalContents(&RAGResult{}))
	assert.Equal(t, []any{}, NormalizeAdditionalContents(&RAGResult{AdditionalContents: json.RawMessage(`"not json"`)}))

	list := NormalizeAdditionalContents(&RAGResult{AdditionalContents: json.RawMessage(`[{"score":1}]`)})
	assert.Len(t, list, 1)

	fromString := NormalizeAdditionalContents(&RAGResult{AdditionalContents: json.RawMessage(`"[{\"score\":1},{\"score\":2}]"`)})
	assert.Len(t, fromString, 2)
}
