package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus for hand lifecycle
// events.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Wildcard subscriptions: SubscribeAll receives every event.
// - Synchronous delivery in subscription order, on the publisher goroutine.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Optional observability: metrics are produced only when observers are registered.
//
// Handlers run inside the simulation tick and should return quickly.
type EventBus interface {
	// Publish delivers event to every active subscriber of event.Type() and to
	// wildcard subscribers. Handler errors are joined.
	Publish(event Event) error
	// Subscribe registers a handler for one event type.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. A nil subscription is ignored.
	Unsubscribe(Subscription) error

	// PublishWithFilters drops the event if any filter returns false.
	PublishWithFilters(event Event, filters ...EventFilter) error
	// PublishAsync publishes on a separate goroutine. The channel receives the
	// joined handler error and is then closed.
	PublishAsync(event Event) <-chan error
	// PublishBatch publishes events in order and aggregates errors.
	PublishBatch(events ...Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns counters collected while at least one observer is
	// registered.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	// Source names the publishing component, e.g. "hand.left".
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
	// EventFilter decides whether an event should be delivered.
	EventFilter func(event Event) bool
)

// Subscription represents a registered handler.
type Subscription interface {
	ID() string
	// EventType is empty for wildcard subscriptions.
	EventType() string
	Handler() EventHandler
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
