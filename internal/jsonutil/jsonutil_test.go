package jsonutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/jsonutil"
)

type sample struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{Name: "Alice", Age: 30}
	data, err := jsonutil.Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, jsonutil.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalEmptyDataErrors(t *testing.T) {
	var out sample
	err := jsonutil.Unmarshal(nil, &out)
	assert.Error(t, err)
}

func TestMarshalIndentProducesIndentedOutput(t *testing.T) {
	data, err := jsonutil.MarshalIndent(sample{Name: "Bob", Age: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"name\"")
}

func TestIsStructurallyValid(t *testing.T) {
	assert.True(t, jsonutil.IsStructurallyValid([]byte(`{"a":1}`)))
	assert.True(t, jsonutil.IsStructurallyValid([]byte(`[1,2,3]`)))
	assert.False(t, jsonutil.IsStructurallyValid([]byte(`{a:1}`)))
	assert.False(t, jsonutil.IsStructurallyValid([]byte(``)))
}

func TestTopLevelKind(t *testing.T) {
	assert.Equal(t, "array", jsonutil.TopLevelKind([]byte(`[1,2,3]`)))
	assert.Equal(t, "object", jsonutil.TopLevelKind([]byte(`{"a":1}`)))
	assert.Equal(t, "other", jsonutil.TopLevelKind([]byte(`"just a string"`)))
}

func TestLineIsValidJSON(t *testing.T) {
	assert.True(t, jsonutil.LineIsValidJSON([]byte(`{"a":1}`)))
	assert.True(t, jsonutil.LineIsValidJSON([]byte(`   `)))
	assert.False(t, jsonutil.LineIsValidJSON([]byte(`{not json`)))
}
