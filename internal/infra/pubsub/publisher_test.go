package pubsub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"threads/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/pubsub/mempubsub"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopicPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topic := mempubsub.NewTopic()
	sub := mempubsub.NewSubscription(topic, time.Minute)
	defer func() { _ = sub.Shutdown(context.Background()) }()

	publisher := NewTopicPublisher(topic, discardLogger())

	event := &service.Event{
		RequestID:  "req-1",
		Type:       service.EventThreadCreated,
		SubjectID:  "p1",
		ActorUID:   "u1",
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	msg, err := sub.Receive(ctx)
	require.NoError(t, err)
	msg.Ack()

	assert.Equal(t, service.EventThreadCreated, msg.Metadata["type"])
	assert.Equal(t, "p1", msg.Metadata["subject_id"])
	assert.Equal(t, "req-1", msg.Metadata["request_id"])

	var got service.Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, *event, got)

	require.NoError(t, publisher.Close())
}

func TestNoopPublisher(t *testing.T) {
	publisher := NewNoopPublisher(discardLogger())

	assert.NoError(t, publisher.Publish(context.Background(), &service.Event{Type: service.EventAccountDeleted}))
	assert.NoError(t, publisher.Close())
}
