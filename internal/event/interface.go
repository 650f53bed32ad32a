package event

import "context"

// Listener reacts to dispatched events.
type Listener interface {
	Handle(ctx context.Context, event any)
}

// Stoppable events can halt delivery to the remaining listeners.
type Stoppable interface {
	PropagationStopped() bool
}

// ListenerProvider returns the listeners for an event in call order.
type ListenerProvider interface {
	ListenersFor(event any) []Listener
}

// Dispatcher delivers an event to its listeners and returns it.
type Dispatcher interface {
	Dispatch(ctx context.Context, event any) any
}

// DispatcherFactory builds dispatchers over a provider.
type DispatcherFactory interface {
	NewDispatcher(provider ListenerProvider) Dispatcher
}
