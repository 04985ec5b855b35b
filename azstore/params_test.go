package azstore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

// canonicalizedResourceFull walks its supported list in order without
// sorting it itself, so each service's param list must already be
// sorted lexicographically.
func TestSupportedParamListsAreSorted(t *testing.T) {
	for name, list := range map[string][]string{
		"Blob":  BlobSupportedParams,
		"Queue": QueueSupportedParams,
		"Table": TableSupportedParams,
	} {
		sorted := append([]string(nil), list...)
		sort.Strings(sorted)
		assert.Equal(t, sorted, list, "%s params not sorted", name)
	}
}

func TestTableSupportedParamsOnlyComp(t *testing.T) {
	assert.Equal(t, []string{"comp"}, TableSupportedParams)
}
