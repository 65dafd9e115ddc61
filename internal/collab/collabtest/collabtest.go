// Package collabtest provides deterministic fakes for internal/collab's
// interfaces, the way the teacher's test packages inject in-memory fakes
// rather than talking to live cloud services.
package collabtest

import (
	"context"
	"sync"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/model"
)

// FakeEventSource replays a fixed queue of events, one per Next call.
type FakeEventSource struct {
	mu     sync.Mutex
	Events []model.ObjectEvent
	pos    int
}

func (f *FakeEventSource) Next(context.Context) (model.ObjectEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.Events) {
		return model.ObjectEvent{}, context.Canceled
	}
	evt := f.Events[f.pos]
	f.pos++
	return evt, nil
}

// FakeStateRegistry is an in-memory StateRegistry, letting tests assert on
// exactly what status was written for a given file hash.
type FakeStateRegistry struct {
	mu       sync.Mutex
	statuses map[string]collab.Status
}

func NewFakeStateRegistry() *FakeStateRegistry {
	return &FakeStateRegistry{statuses: make(map[string]collab.Status)}
}

func (f *FakeStateRegistry) Get(_ context.Context, fileHash string) (collab.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.statuses[fileHash]; ok {
		return s, nil
	}
	return collab.StatusUnknown, nil
}

func (f *FakeStateRegistry) Set(_ context.Context, fileHash string, status collab.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[fileHash] = status
	return nil
}

// FakeMessageBus records every message published to it, for assertions.
type FakeMessageBus struct {
	mu               sync.Mutex
	LoadRequests     []model.LoadRequest
	CompletionEvents []model.CompletionEvent
}

func (f *FakeMessageBus) PublishLoadRequest(_ context.Context, req model.LoadRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoadRequests = append(f.LoadRequests, req)
	return nil
}

func (f *FakeMessageBus) PublishCompletion(_ context.Context, evt model.CompletionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CompletionEvents = append(f.CompletionEvents, evt)
	return nil
}

// FakeHeaderDetector returns a fixed, pre-programmed answer.
type FakeHeaderDetector struct {
	HasHeader bool
	Err       error
}

func (f FakeHeaderDetector) DetectHeader(context.Context, [][]string) (bool, error) {
	return f.HasHeader, f.Err
}

// FakePIIDetector returns a fixed, pre-programmed findings list.
type FakePIIDetector struct {
	Findings []model.PIIFinding
	Err      error
}

func (f FakePIIDetector) DetectPII(context.Context, []string, map[string][]string) ([]model.PIIFinding, error) {
	return f.Findings, f.Err
}

var (
	_ collab.EventSource    = (*FakeEventSource)(nil)
	_ collab.StateRegistry  = (*FakeStateRegistry)(nil)
	_ collab.MessageBus     = (*FakeMessageBus)(nil)
	_ collab.HeaderDetector = FakeHeaderDetector{}
	_ collab.PIIDetector    = FakePIIDetector{}
)
