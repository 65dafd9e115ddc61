package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowHashStableForSameValues(t *testing.T) {
	a := RowHash([]string{"Alice", "30", "NYC"})
	b := RowHash([]string{"Alice", "30", "NYC"})
	assert.Equal(t, a, b)
}

func TestRowHashDiffersOnValueChange(t *testing.T) {
	a := RowHash([]string{"Alice", "30", "NYC"})
	b := RowHash([]string{"Alice", "31", "NYC"})
	assert.NotEqual(t, a, b)
}

func TestRowHashSensitiveToFieldBoundary(t *testing.T) {
	// "a","bc" and "ab","c" must hash differently: the 0x1f separator
	// is what prevents field-boundary collisions in the concatenation.
	a := RowHash([]string{"a", "bc"})
	b := RowHash([]string{"ab", "c"})
	assert.NotEqual(t, a, b)
}

func TestRowHashEmpty(t *testing.T) {
	assert.NotPanics(t, func() {
		RowHash(nil)
	})
}
