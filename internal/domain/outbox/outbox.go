package outbox

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by Publish once the bus has stopped accepting events.
	ErrClosed = errors.New("outbox: closed")
	// ErrQueueFull is returned by TryPublish when the event would have to wait.
	ErrQueueFull = errors.New("outbox: queue full")
)

// Event is anything carrying a stable name for routing.
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// TryPublisher enqueues without waiting. Code that may run inside a handler of
// the same bus publishes this way, since a blocking Publish there waits on the
// dispatcher that is running it.
type TryPublisher interface {
	TryPublish(e Event) error
}
