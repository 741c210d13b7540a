// FILE: internal/service/consumer_service.go
package service

import (
	"context"

	"linkstride-client/internal/pkg/logger"
	"linkstride-client/pkg/events"
)

// EventSource is the in-process bus the consumer drains.
type EventSource interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, event events.Event)) error
}

// EventSink receives every session event, e.g. the websocket hub or the NATS mirror.
type EventSink struct {
	Name    string
	Forward func(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	source EventSource
	sinks  []EventSink
	logger logger.ILogger
}

func NewConsumerService(source EventSource, log logger.ILogger, sinks ...EventSink) IConsumerService {
	return &consumerService{
		source: source,
		sinks:  sinks,
		logger: log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	return cs.source.Subscribe(ctx, cs.processEvent)
}

// processEvent fans out to every sink. A failing sink never blocks the others.
func (cs *consumerService) processEvent(ctx context.Context, event events.Event) {
	cs.logger.Debug("Consumer", "Dispatching event", map[string]interface{}{
		"type": event.EventType(),
	})
	for _, sink := range cs.sinks {
		if err := sink.Forward(ctx, event); err != nil {
			cs.logger.Error("Consumer", "Failed to forward event", map[string]interface{}{
				"sink":  sink.Name,
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
}
