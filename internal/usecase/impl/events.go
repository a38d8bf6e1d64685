package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "threads/internal/delivery/context"
	"threads/internal/domain/service"
)

// eventEmitter publishes domain events after a mutation has been stored.
// Publishing never fails the mutation.
type eventEmitter struct {
	publisher service.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func newEventEmitter(publisher service.EventPublisher, logger *slog.Logger) *eventEmitter {
	return &eventEmitter{publisher: publisher, logger: logger, now: time.Now}
}

func (e *eventEmitter) emit(ctx context.Context, eventType, subjectID, actorUID string, attrs map[string]string) {
	if e == nil || e.publisher == nil {
		return
	}

	event := &service.Event{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		SubjectID:  subjectID,
		ActorUID:   actorUID,
		OccurredAt: e.now().UTC(),
		Attributes: attrs,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		requestLogger(ctx, e.logger).WarnContext(ctx, "Failed to publish event",
			slog.String("type", eventType),
			slog.String("subject_id", subjectID),
			slog.Any("error", err),
		)
	}
}
