// Package collab defines the external collaborators of spec.md §9 that
// this module calls (the object-storage event source, a load-request
// source for the Lakehouse Loader, the state registry, the asynchronous
// message bus) plus the two classifiers of §4.I/§4.J. The LLM-orchestrated
// shell and the discovery/catalog notifier have no interface here; nothing
// in this module calls them. Each is modeled as a small interface, the way the teacher's
// internal/interfaces package abstracts Source/Sink behind typed
// contracts, with a fail-open default implementation per spec.md §7's
// "never fatal" rule for best-effort external calls.
package collab

import (
	"context"

	"github.com/datagruntio/cleanroom/internal/model"
)

// EventSource decodes the inbound object-creation notification spec.md §6
// describes as the pipeline's trigger.
type EventSource interface {
	Next(ctx context.Context) (model.ObjectEvent, error)
}

// LoadRequestSource decodes the Lakehouse Loader's own inbound
// subscription, the load-request messages the orchestrator publishes
// per spec.md §6.
type LoadRequestSource interface {
	Next(ctx context.Context) (model.LoadRequest, error)
}

// Status is the per-file state the StateRegistry tracks.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// StateRegistry tracks per-file processing status in an external
// Firestore-like KV store, per spec.md §9. It exists to let the
// orchestrator recognize redelivery of an already-completed file.
type StateRegistry interface {
	Get(ctx context.Context, fileHash string) (Status, error)
	Set(ctx context.Context, fileHash string, status Status) error
}

// MessageBus publishes the outbound load-request and completion events of
// spec.md §6.
type MessageBus interface {
	PublishLoadRequest(ctx context.Context, req model.LoadRequest) error
	PublishCompletion(ctx context.Context, evt model.CompletionEvent) error
}

// HeaderDetector classifies whether the first row of a table is a header
// row, per spec.md §4.I. It is best-effort: a failure must never fail the
// pipeline.
type HeaderDetector interface {
	DetectHeader(ctx context.Context, sampleRows [][]string) (bool, error)
}

// PIIDetector flags columns likely to hold personally identifiable
// information, per spec.md §4.J. Best-effort, same as HeaderDetector.
type PIIDetector interface {
	DetectPII(ctx context.Context, columnNames []string, sampleValues map[string][]string) ([]model.PIIFinding, error)
}

// NoopStateRegistry is the fail-open StateRegistry default: every file
// reports "unknown" and every write is accepted silently, so the
// orchestrator always treats the file as new.
type NoopStateRegistry struct{}

func (NoopStateRegistry) Get(context.Context, string) (Status, error) { return StatusUnknown, nil }
func (NoopStateRegistry) Set(context.Context, string, Status) error   { return nil }

// NoopHeaderDetector is the fail-open default: it always reports HEADERS
// present, matching the conservative default named in spec.md §4.I.
type NoopHeaderDetector struct{}

func (NoopHeaderDetector) DetectHeader(context.Context, [][]string) (bool, error) {
	return true, nil
}

// NoopPIIDetector is the fail-open default: it reports no findings.
type NoopPIIDetector struct{}

func (NoopPIIDetector) DetectPII(context.Context, []string, map[string][]string) ([]model.PIIFinding, error) {
	return nil, nil
}
