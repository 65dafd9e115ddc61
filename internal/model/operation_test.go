package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/model"
)

func TestIsSubsequenceOfCanonicalOrderAcceptsGaps(t *testing.T) {
	tags := []model.OperationTag{
		model.OpWhitespaceTrim,
		model.OpTypeCoercion,
		model.OpPIIDetection,
	}
	assert.True(t, model.IsSubsequenceOfCanonicalOrder(tags))
}

func TestIsSubsequenceOfCanonicalOrderAcceptsFullOrder(t *testing.T) {
	assert.True(t, model.IsSubsequenceOfCanonicalOrder(model.CanonicalOrder))
}

func TestIsSubsequenceOfCanonicalOrderAcceptsEmpty(t *testing.T) {
	assert.True(t, model.IsSubsequenceOfCanonicalOrder(nil))
}

func TestIsSubsequenceOfCanonicalOrderRejectsOutOfOrder(t *testing.T) {
	tags := []model.OperationTag{
		model.OpTypeCoercion,
		model.OpWhitespaceTrim,
	}
	assert.False(t, model.IsSubsequenceOfCanonicalOrder(tags))
}

func TestIsSubsequenceOfCanonicalOrderRejectsUnknownTag(t *testing.T) {
	tags := []model.OperationTag{
		model.OpWhitespaceTrim,
		model.OperationTag("not_a_real_step"),
	}
	assert.False(t, model.IsSubsequenceOfCanonicalOrder(tags))
}
