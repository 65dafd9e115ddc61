package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyJSON(t *testing.T) {
	assert.Equal(t, "array", ClassifyJSON([]byte("  [1,2,3]")))
	assert.Equal(t, "line-delimited", ClassifyJSON([]byte(`{"a":1}`+"\n"+`{"a":2}`)))
	assert.Equal(t, "auto", ClassifyJSON([]byte(`"just a string"`)))
	assert.Equal(t, "auto", ClassifyJSON(nil))
	assert.Equal(t, "auto", ClassifyJSON([]byte("   \t\n")))
}

func TestRepairJSONStripsBOMAndControls(t *testing.T) {
	input := append([]byte("\xef\xbb\xbf"), []byte("{\"a\":\x01\"b\"}")...)
	out := repairJSON(input)
	assert.NotContains(t, string(out), "\xef\xbb\xbf")
	assert.NotContains(t, string(out), "\x01")
}

func TestRepairJSONRemovesTrailingCommas(t *testing.T) {
	out := repairJSON([]byte(`{"a":1,"b":2,}`))
	assert.Equal(t, `{"a":1,"b":2}`, string(out))

	out = repairJSON([]byte(`[1,2,3,]`))
	assert.Equal(t, `[1,2,3]`, string(out))
}

func TestRepairJSONConvertsSingleQuotedKeys(t *testing.T) {
	out := repairJSON([]byte(`{'a':1}`))
	assert.Equal(t, `{"a":1}`, string(out))
}

func TestCountJSONRecordsLineDelimited(t *testing.T) {
	data := []byte("{\"a\":1}\n\n{\"a\":2}\n{\"a\":3}\n")
	count, err := countJSONRecords(data, "line-delimited")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCountJSONRecordsArray(t *testing.T) {
	count, err := countJSONRecords([]byte(`[1,2,3,4]`), "array")
	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestCountJSONRecordsMalformedArrayReturnsZero(t *testing.T) {
	count, err := countJSONRecords([]byte(`[1,2,`), "array")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestFirstN(t *testing.T) {
	assert.Equal(t, "hello", firstN("hello world", 5))
	assert.Equal(t, "hi", firstN("hi", 10))
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `O''Brien`, escapeLiteral(`O'Brien`))
	assert.Equal(t, "plain", escapeLiteral("plain"))
}

func TestBuildRecoverySQLAutoDetect(t *testing.T) {
	sql := buildRecoverySQL("orders", "/tmp/o.csv", quoteEscapePair{auto: true}, true)
	assert.Contains(t, sql, `auto_detect=true`)
	assert.Contains(t, sql, `"orders"`)
	assert.Contains(t, sql, `header=true`)
}

func TestBuildRecoverySQLExplicitQuoteEscape(t *testing.T) {
	sql := buildRecoverySQL("orders", "/tmp/o.csv", quoteEscapePair{quote: `"`, escape: `\`}, false)
	assert.Contains(t, sql, `quote='"'`)
	assert.Contains(t, sql, `escape='\'`)
	assert.Contains(t, sql, `header=false`)
}

func TestTrailingOverflowBlock(t *testing.T) {
	names := []string{"id", "name", "extra1", "extra2"}
	nullCounts := map[string]int64{"id": 0, "name": 1, "extra1": 95, "extra2": 99}
	overflow := trailingOverflowBlock(names, nullCounts, 100)
	assert.Equal(t, []string{"extra1", "extra2"}, overflow)
}

func TestTrailingOverflowBlockOnlyTrailingRun(t *testing.T) {
	// A high-null column that isn't trailing must not count: overflow
	// is defined as the contiguous trailing block only.
	names := []string{"id", "sparse", "name", "extra"}
	nullCounts := map[string]int64{"id": 0, "sparse": 99, "name": 1, "extra": 99}
	overflow := trailingOverflowBlock(names, nullCounts, 100)
	assert.Equal(t, []string{"extra"}, overflow)
}

func TestTrailingOverflowBlockNoneWhenBelowThreshold(t *testing.T) {
	names := []string{"id", "name"}
	nullCounts := map[string]int64{"id": 0, "name": 10}
	overflow := trailingOverflowBlock(names, nullCounts, 100)
	assert.Empty(t, overflow)
}

func TestCoercionStatsSuggestedCast(t *testing.T) {
	cases := []struct {
		name  string
		stats coercionStats
		want  string
	}{
		{"double qualifies", coercionStats{nonNull: 100, castableDouble: 95}, "DOUBLE"},
		{"date qualifies", coercionStats{nonNull: 100, castableDate: 90}, "DATE"},
		{"boolean qualifies", coercionStats{nonNull: 100, castableBoolean: 100}, "BOOLEAN"},
		{"below threshold stays text", coercionStats{nonNull: 100, castableDouble: 50}, ""},
		{"leading zeros block coercion", coercionStats{nonNull: 100, castableDouble: 100, leadingZero: 1}, ""},
		{"no non-null values", coercionStats{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stats.SuggestedCast())
		})
	}
}
