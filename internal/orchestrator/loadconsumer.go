package orchestrator

import (
	"context"

	"github.com/go-kit/log"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/errs"
	"github.com/datagruntio/cleanroom/internal/logging"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/stage"
)

// LoadConsumer is the Lakehouse Loader's own driver: it subscribes to the
// load-request topic the Pipeline Orchestrator publishes to (spec.md §6)
// and runs each request through the LakehouseWriter, decoupled from the
// ingestion orchestrator's own process per spec.md §5's "multiple
// invocations run concurrently in separate processes" model.
type LoadConsumer struct {
	Writer stage.LakehouseWriter
	Bus    collab.MessageBus
	Logger log.Logger
}

// ProcessLoadRequest runs one load request to completion, publishing the
// matching LOADER_BIGQUERY_COMPLETE or LOADER_BIGQUERY_FAILED event.
func (c *LoadConsumer) ProcessLoadRequest(ctx context.Context, req model.LoadRequest) error {
	logger := log.With(c.Logger, "file_hash", req.FileHash, "target_table", req.TargetTable)

	result, err := c.Writer.Load(ctx, req)
	if err != nil {
		logging.Error(logger, "msg", "lakehouse load failed", "err", err)
		pubErr := c.Bus.PublishCompletion(ctx, model.CompletionEvent{
			Type:     model.EventLoaderFailed,
			FileHash: req.FileHash,
			Fields: map[string]any{
				"stage":       errs.StageLakehouse,
				"error_class": errs.ClassName(err),
				"error":       err.Error(),
			},
		})
		if pubErr != nil {
			logging.Warn(logger, "msg", "failure event publish also failed", "err", pubErr)
		}
		return err
	}

	logging.Info(logger, "msg", "lakehouse load complete", "load_id", result.LoadID, "created", result.Created)
	if err := c.Bus.PublishCompletion(ctx, model.CompletionEvent{
		Type:     model.EventLoaderComplete,
		FileHash: req.FileHash,
		Fields: map[string]any{
			"table":        result.Table,
			"rows_scanned": result.RowsScanned,
			"created":      result.Created,
			"load_id":      result.LoadID,
		},
	}); err != nil {
		logging.Warn(logger, "msg", "completion event publish failed", "err", err)
	}
	return nil
}
