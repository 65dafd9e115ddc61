package collab

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/datagruntio/cleanroom/internal/jsonutil"
	"github.com/datagruntio/cleanroom/internal/model"
)

// PubSubBus publishes load requests and completion events over
// cloud.google.com/go/pubsub, extending the teacher's existing family of
// cloud.google.com/go/* clients (storage, bigquery) to the messaging
// concern spec.md §9 calls out as an external collaborator.
type PubSubBus struct {
	loadTopic       *pubsub.Topic
	completionTopic *pubsub.Topic
}

// NewPubSubBus opens the two topics the pipeline publishes to: the
// lakehouse load-request topic and the pipeline completion-event topic.
func NewPubSubBus(ctx context.Context, projectID, loadTopicID, completionTopicID string) (*PubSubBus, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("collab: failed to create pubsub client: %w", err)
	}
	return &PubSubBus{
		loadTopic:       client.Topic(loadTopicID),
		completionTopic: client.Topic(completionTopicID),
	}, nil
}

func (b *PubSubBus) PublishLoadRequest(ctx context.Context, req model.LoadRequest) error {
	data, err := jsonutil.Marshal(req)
	if err != nil {
		return fmt.Errorf("collab: failed to marshal load request: %w", err)
	}
	result := b.loadTopic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	if err != nil {
		return fmt.Errorf("collab: failed to publish load request: %w", err)
	}
	return nil
}

func (b *PubSubBus) PublishCompletion(ctx context.Context, evt model.CompletionEvent) error {
	data, err := jsonutil.Marshal(evt.MarshalMap())
	if err != nil {
		return fmt.Errorf("collab: failed to marshal completion event: %w", err)
	}
	result := b.completionTopic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	if err != nil {
		return fmt.Errorf("collab: failed to publish completion event: %w", err)
	}
	return nil
}

// Stop releases the topics' send queues, flushing any buffered messages.
func (b *PubSubBus) Stop() {
	b.loadTopic.Stop()
	b.completionTopic.Stop()
}
