package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/model"
)

func TestNewLoadRequestDefaults(t *testing.T) {
	req := model.NewLoadRequest("abc123", "gs://staging/orders.parquet", "sales", "orders", "gs://inbox/orders.csv", 42)

	assert.Equal(t, "LOAD_REQUEST", req.Type)
	assert.Equal(t, model.WriteModeAppend, req.WriteMode)
	assert.Equal(t, int64(42), req.RowCount)
	assert.Equal(t, []string{}, req.UpsertKeys)
	assert.Equal(t, "orders", req.TargetTable)
}

func TestCompletionEventMarshalMapMergesFields(t *testing.T) {
	evt := model.CompletionEvent{
		Type:     model.EventLoaderComplete,
		FileHash: "deadbeef",
		Fields: map[string]any{
			"table":   "orders",
			"created": true,
		},
	}
	m := evt.MarshalMap()

	assert.Equal(t, model.EventLoaderComplete, m["type"])
	assert.Equal(t, "deadbeef", m["file_hash"])
	assert.Equal(t, "orders", m["table"])
	assert.Equal(t, true, m["created"])
}

func TestCompletionEventMarshalMapWithoutFields(t *testing.T) {
	evt := model.CompletionEvent{Type: model.EventLoaderFailed, FileHash: "xyz"}
	m := evt.MarshalMap()
	assert.Len(t, m, 2)
}
