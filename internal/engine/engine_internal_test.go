package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/errs"
)

func TestExecSafeRejectsDestructiveStatements(t *testing.T) {
	rejected := []string{
		"DELETE FROM orders",
		"  delete from orders where id = 1",
		"DROP TABLE orders",
		"drop   table orders",
		"TRUNCATE orders",
		"DROP DATABASE mydb",
	}
	s := &Session{}
	for _, sql := range rejected {
		err := s.ExecSafe(context.Background(), sql)
		assert.Error(t, err, "expected rejection for %q", sql)
		assert.Equal(t, "ValidationError", errs.ClassName(err))
	}
}

func TestExecSafeAllowsNonDestructiveKeywordsInStatementBody(t *testing.T) {
	// "DROP TABLE" must only match as a leading statement, not a
	// substring elsewhere in an otherwise-safe query.
	assert.False(t, destructivePattern.MatchString("SELECT * FROM orders WHERE note = 'please do not drop table'"))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdent("orders"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "", truncate("hello", 0))
}
