package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdent("orders"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}

func TestEscapeSQLLiteral(t *testing.T) {
	assert.Equal(t, `O''Brien`, escapeSQLLiteral(`O'Brien`))
	assert.Equal(t, `no quotes here`, escapeSQLLiteral(`no quotes here`))
}
