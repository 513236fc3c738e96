package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortTargets(t *testing.T) {
	targets := []Target{
		{Name: "idx", Kind: 'i'},
		{Name: "tbl", Kind: 'r'},
		{Name: "idx", Kind: 'i', Path: "other_schema"},
	}
	sortTargets(targets, []string{"tbl", "idx"})
	assert.Equal(t, "tbl", targets[0].Name)
	assert.Equal(t, "idx", targets[1].Name)
	assert.Equal(t, "other_schema", targets[2].Path)
}

func TestKindToString(t *testing.T) {
	assert.Equal(t, "Index", KindToString('i'))
	assert.Equal(t, "File", KindToString('f'))
	assert.Equal(t, "Unknown", KindToString('z'))
}
