package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"threads/internal/domain/service"

	"github.com/pkg/errors"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/gcppubsub" // gcppubsub:// topics
	_ "gocloud.dev/pubsub/mempubsub" // mem:// topics
)

const shutdownTimeout = 10 * time.Second

// topicPublisher implements EventPublisher on a gocloud.dev/pubsub topic
type topicPublisher struct {
	topic  *pubsub.Topic
	logger *slog.Logger
}

// OpenTopicPublisher opens the topic at topicURL, e.g. "mem://events" or
// "gcppubsub://projects/my-project/topics/threads-events".
func OpenTopicPublisher(ctx context.Context, topicURL string, logger *slog.Logger) (service.EventPublisher, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open topic %s", topicURL)
	}

	logger.Info("Event topic publisher initialized", slog.String("topic", topicURL))

	return NewTopicPublisher(topic, logger), nil
}

// NewTopicPublisher wraps an already open topic.
func NewTopicPublisher(topic *pubsub.Topic, logger *slog.Logger) service.EventPublisher {
	return &topicPublisher{topic: topic, logger: logger}
}

// Publish sends the event as a JSON body with its type in the metadata
func (p *topicPublisher) Publish(ctx context.Context, event *service.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	msg := &pubsub.Message{
		Body: data,
		Metadata: map[string]string{
			"type":       event.Type,
			"subject_id": event.SubjectID,
		},
	}
	if event.RequestID != "" {
		msg.Metadata["request_id"] = event.RequestID
	}

	if err := p.topic.Send(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to publish %s event", event.Type)
	}

	p.logger.DebugContext(ctx, "Event published",
		slog.String("type", event.Type),
		slog.String("subject_id", event.SubjectID),
	)

	return nil
}

// Close flushes pending messages and releases the topic
func (p *topicPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.WithStack(p.topic.Shutdown(ctx))
}
