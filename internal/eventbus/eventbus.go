// Package eventbus provides the in-process fan-out bus used to observe
// dispatch and meter activity.
package eventbus

// Event is any payload from core/events.
type Event interface{}

// EventBus is what publishers and the metrics collector depend on.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New(opts ...Option) *Bus { return NewTyped[Event](opts...) }

var _ EventBus = (*Bus)(nil)
