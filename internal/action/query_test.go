package action

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCall(t *testing.T) {
	got := call("(a, b) => a + b\n", `div[title="x"]`, 3)
	assert.Equal(t, `((a, b) => a + b)("div[title=\"x\"]", 3)`, got)
}

func TestEmbeddedScriptsAreFunctions(t *testing.T) {
	for name, js := range map[string]string{
		"element_state": elementStateJS,
		"query_all":     queryAllJS,
		"mark_nth":      markNthJS,
		"force_click":   forceClickJS,
	} {
		assert.True(t, strings.HasPrefix(strings.TrimSpace(js), "("), name)
		assert.Contains(t, js, "=>", name)
	}
}
