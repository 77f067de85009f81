package event

import (
	"context"
	"time"

	"github.com/viant/procsched/service/messaging"
)

type Publisher[T any] struct {
	queue  messaging.Queue[Event[T]]
	bootID string
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Publish enqueues the event
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = time.Now()
	if event.Context != nil && event.Context.BootID == "" {
		event.Context.BootID = p.bootID
	}
	return p.queue.Publish(ctx, event)
}

// Consume returns the next message; the caller acknowledges it with Ack or Nack
func (p *Publisher[T]) Consume(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}

// Dropped returns the number of events the queue discarded, 0 when it does not count them
func (p *Publisher[T]) Dropped() int {
	if counter, ok := p.queue.(interface{ Dropped() int }); ok {
		return counter.Dropped()
	}
	return 0
}
