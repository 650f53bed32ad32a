package event

import (
	"context"
	"reflect"
	"sync"
)

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event any)

func (f ListenerFunc) Handle(ctx context.Context, event any) { f(ctx, event) }

type named struct {
	name string
	fn   ListenerFunc
}

// Named returns a listener that describes itself by name.
func Named(name string, fn ListenerFunc) Listener {
	return &named{name: name, fn: fn}
}

func (n *named) Handle(ctx context.Context, event any) { n.fn(ctx, event) }
func (n *named) String() string                        { return n.name }

// Listeners maps event types to listeners.
type Listeners struct {
	mu        sync.RWMutex
	listeners map[reflect.Type][]Listener
}

func NewListeners() *Listeners {
	return &Listeners{listeners: make(map[reflect.Type][]Listener)}
}

// Add registers l for events of the same dynamic type as sample.
func (l *Listeners) Add(sample any, listener Listener) *Listeners {
	t := reflect.TypeOf(sample)

	l.mu.Lock()
	l.listeners[t] = append(l.listeners[t], listener)
	l.mu.Unlock()
	return l
}

func (l *Listeners) ListenersFor(event any) []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()

	found := l.listeners[reflect.TypeOf(event)]
	out := make([]Listener, len(found))
	copy(out, found)
	return out
}

// On registers a typed listener for events of type T.
func On[T any](l *Listeners, name string, fn func(ctx context.Context, event T)) *Listeners {
	var zero T
	return l.Add(zero, Named(name, func(ctx context.Context, event any) {
		if e, ok := event.(T); ok {
			fn(ctx, e)
		}
	}))
}

type dispatcher struct {
	provider ListenerProvider
}

func NewDispatcher(provider ListenerProvider) Dispatcher {
	return &dispatcher{provider: provider}
}

func (d *dispatcher) Dispatch(ctx context.Context, event any) any {
	stoppable, _ := event.(Stoppable)

	for _, listener := range d.provider.ListenersFor(event) {
		if stoppable != nil && stoppable.PropagationStopped() {
			return event
		}
		listener.Handle(ctx, event)
	}
	return event
}

// DefaultFactory builds plain dispatchers.
type DefaultFactory struct{}

func (DefaultFactory) NewDispatcher(provider ListenerProvider) Dispatcher {
	return NewDispatcher(provider)
}
