package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const Topic = "session.events"

// Bus is the in-process fan-out every session event goes through.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus(bufferSize int64) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: bufferSize},
			watermill.NopLogger{},
		),
	}
}

var _ Publisher = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.EventType())
	return b.pubSub.Publish(Topic, msg)
}

// Subscribe delivers events until ctx is done. Every message is acked after the
// handler returns, including undecodable ones.
func (b *Bus) Subscribe(ctx context.Context, handler func(ctx context.Context, event Event)) error {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event, err := Unmarshal(msg.Payload)
			if err == nil {
				handler(ctx, event)
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
