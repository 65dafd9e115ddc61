package colname_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/colname"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Customer Name":   "customer_name",
		"orderID":         "order_id",
		"  Total $Amount": "total_amount",
		"2026Revenue":     "_2026_revenue",
		"___":             "unnamed",
		"":                "unnamed",
		"already_snake":   "already_snake",
	}
	for in, want := range cases {
		assert.Equal(t, want, colname.Normalize(in), "input %q", in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	labels := []string{"Customer Name", "orderID", "  Total $Amount", "2026Revenue"}
	for _, label := range labels {
		once := colname.Normalize(label)
		twice := colname.Normalize(once)
		assert.Equal(t, once, twice, "normalize not idempotent for %q", label)
	}
}

func TestDeduplicate(t *testing.T) {
	got := colname.Deduplicate([]string{"Name", "name", "Name", "Other"})
	require.Equal(t, []string{"name", "name_1", "name_2", "other"}, got)
}

func TestRenameMapping(t *testing.T) {
	mapping := colname.RenameMapping([]string{"Customer Name", "id", "Order ID"})
	assert.Equal(t, "customer_name", mapping["Customer Name"])
	assert.Equal(t, "order_id", mapping["Order ID"])
	_, unchanged := mapping["id"]
	assert.False(t, unchanged, "id should not appear when normalization is a no-op")
}
