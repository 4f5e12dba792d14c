package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickFirst(t *testing.T) {
	m := map[string]any{"CustomerName": " ", "Customer": "ACME", "Count": float64(12)}
	assert.Equal(t, "ACME", PickFirst(m, []string{"CustomerName", "Customer"}, "Unknown"))
	assert.Equal(t, "Unknown", PickFirst(m, []string{"Missing"}, "Unknown"))
	assert.Equal(t, "12", PickFirst(m, []string{"Count"}, ""))
}

func TestPickValue(t *testing.T) {
	m := map[string]any{"a": nil, "b": float64(0)}
	v, ok := PickValue(m, "a", "b")
	assert.True(t, ok)
	assert.Equal(t, float64(0), v)

	_, ok = PickValue(m, "c")
	assert.False(t, ok)
}

func TestODataResults(t *testing.T) {
	assert.Len(t, ODataResults([]byte(`{"d":{"results":[{"a":1},{"a":2}]}}`)), 2)
	assert.Len(t, ODataResults([]byte(`{"value":[{"a":1}]}`)), 1)
	assert.Len(t, ODataResults([]byte(`[{"a":1},"skip"]`)), 1)
	assert.Empty(t, ODataResults([]byte(`<xml/>`)))
}
