package collab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/collab"
)

func TestNoopStateRegistryReturnsUnknown(t *testing.T) {
	reg := collab.NoopStateRegistry{}
	status, err := reg.Get(context.Background(), "some-hash")
	require.NoError(t, err)
	assert.Equal(t, collab.StatusUnknown, status)
	assert.NoError(t, reg.Set(context.Background(), "some-hash", collab.StatusUnknown))
}

func TestNoopHeaderDetectorAlwaysTrue(t *testing.T) {
	detected, err := collab.NoopHeaderDetector{}.DetectHeader(context.Background(), [][]string{{"a", "b"}})
	require.NoError(t, err)
	assert.True(t, detected)
}

func TestNoopPIIDetectorReturnsNoFindings(t *testing.T) {
	findings, err := collab.NoopPIIDetector{}.DetectPII(context.Background(), []string{"email"}, nil)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
