package lakehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"cloud.google.com/go/bigquery"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`orders`", quoteIdent("orders"))
	assert.Equal(t, "`weird``name`", quoteIdent("weird`name"))
}

func TestBQTypeName(t *testing.T) {
	assert.Equal(t, "STRING", bqTypeName(bigquery.StringFieldType))
	assert.Equal(t, "INTEGER", bqTypeName(bigquery.IntegerFieldType))
}
