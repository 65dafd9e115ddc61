package collab

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"

	"github.com/datagruntio/cleanroom/internal/jsonutil"
	"github.com/datagruntio/cleanroom/internal/model"
)

// PubSubEventSource adapts a pubsub.Subscription's push-style Receive
// callback to the pull-style EventSource.Next the orchestrator's serve
// loop expects, buffering decoded events on a channel.
type PubSubEventSource struct {
	sub    *pubsub.Subscription
	events chan model.ObjectEvent
	errs   chan error

	once    sync.Once
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// NewPubSubEventSource wraps an existing subscription. Start must be
// called once before the first Next call.
func NewPubSubEventSource(sub *pubsub.Subscription) *PubSubEventSource {
	return &PubSubEventSource{
		sub:    sub,
		events: make(chan model.ObjectEvent, 16),
		errs:   make(chan error, 1),
	}
}

// Start begins the background Receive loop. Safe to call once; later
// calls are no-ops.
func (s *PubSubEventSource) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	recvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		err := s.sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			var evt model.ObjectEvent
			if err := jsonutil.Unmarshal(msg.Data, &evt); err != nil {
				msg.Nack()
				return
			}
			s.events <- evt
			msg.Ack()
		})
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("collab: subscription receive failed: %w", err):
			default:
			}
		}
		close(s.events)
	}()
}

// Next returns the next decoded object event, blocking until one arrives,
// ctx is done, or the subscription's Receive loop exits.
func (s *PubSubEventSource) Next(ctx context.Context) (model.ObjectEvent, error) {
	select {
	case evt, ok := <-s.events:
		if !ok {
			select {
			case err := <-s.errs:
				return model.ObjectEvent{}, err
			default:
				return model.ObjectEvent{}, fmt.Errorf("collab: event source closed")
			}
		}
		return evt, nil
	case err := <-s.errs:
		return model.ObjectEvent{}, err
	case <-ctx.Done():
		return model.ObjectEvent{}, ctx.Err()
	}
}

// Stop cancels the Receive loop.
func (s *PubSubEventSource) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// PubSubLoadRequestSource mirrors PubSubEventSource for the Lakehouse
// Loader's own inbound subscription: the same object-creation topic
// pattern, decoding model.LoadRequest instead of model.ObjectEvent, since
// the two consumers (ingestion orchestrator, lakehouse loader) subscribe
// to different topics carrying different payloads.
type PubSubLoadRequestSource struct {
	sub    *pubsub.Subscription
	events chan model.LoadRequest
	errs   chan error

	once    sync.Once
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

func NewPubSubLoadRequestSource(sub *pubsub.Subscription) *PubSubLoadRequestSource {
	return &PubSubLoadRequestSource{
		sub:    sub,
		events: make(chan model.LoadRequest, 16),
		errs:   make(chan error, 1),
	}
}

func (s *PubSubLoadRequestSource) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	recvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		err := s.sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			var req model.LoadRequest
			if err := jsonutil.Unmarshal(msg.Data, &req); err != nil {
				msg.Nack()
				return
			}
			s.events <- req
			msg.Ack()
		})
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("collab: subscription receive failed: %w", err):
			default:
			}
		}
		close(s.events)
	}()
}

func (s *PubSubLoadRequestSource) Next(ctx context.Context) (model.LoadRequest, error) {
	select {
	case req, ok := <-s.events:
		if !ok {
			select {
			case err := <-s.errs:
				return model.LoadRequest{}, err
			default:
				return model.LoadRequest{}, fmt.Errorf("collab: load request source closed")
			}
		}
		return req, nil
	case err := <-s.errs:
		return model.LoadRequest{}, err
	case <-ctx.Done():
		return model.LoadRequest{}, ctx.Err()
	}
}

func (s *PubSubLoadRequestSource) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
