package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/errs"
)

func TestWrapStageNilIsNil(t *testing.T) {
	assert.Nil(t, wrapStage(errs.StageLoad, nil))
}

func TestWrapStageCarriesStageAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := wrapStage(errs.StageClean, cause)

	var se *stagedError
	assert.True(t, asStagedError(err, &se))
	assert.Equal(t, errs.StageClean, se.Stage)
	assert.Equal(t, cause, se.Cause)
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestAsStagedErrorFalseForPlainError(t *testing.T) {
	var se *stagedError
	assert.False(t, asStagedError(errors.New("plain"), &se))
	assert.Nil(t, se)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdent("orders"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}
