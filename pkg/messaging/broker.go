package messaging

import (
	"context"
	stderrors "errors"
)

var ErrClosed = stderrors.New("broker closed")

// Broker defines the interface for message brokers
type Broker interface {
	// Publish sends payload to topic. Brokers that partition by key use key
	// to keep messages of one aggregate in order.
	Publish(ctx context.Context, topic, key string, payload []byte) error
	// Subscribe streams messages from topic until ctx is cancelled.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}

// Handler processes one message.
type Handler func(ctx context.Context, payload []byte) error

// Consume feeds every message of topic to h until ctx is cancelled or the
// subscription ends. Handler errors are passed to onError and do not stop
// consumption.
func Consume(ctx context.Context, b Broker, topic string, h Handler, onError func(payload []byte, err error)) error {
	msgs, err := b.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			if err := h(ctx, msg); err != nil && onError != nil {
				onError(msg, err)
			}
		}
	}
}
