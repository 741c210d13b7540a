package service

import (
	"context"

	"linkstride-client/internal/pkg/logger"
	"linkstride-client/pkg/events"
)

// publish is fire-and-forget: a failed announcement never fails the operation.
func publish(ctx context.Context, publisher events.Publisher, log logger.ILogger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Events", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
