package collector

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/event"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// EventRecorder records dispatched events and the listeners they reached.
type EventRecorder struct {
	mu         sync.Mutex
	dispatched []map[string]any
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Dispatched records e and returns its index for Listener.
func (r *EventRecorder) Dispatched(e any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dispatched = append(r.dispatched, map[string]any{"event": dump.HTML(e)})
	return len(r.dispatched) - 1
}

// Listener appends a listener invocation to the event at index.
func (r *EventRecorder) Listener(index int, l event.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := r.dispatched[index]
	listeners, _ := record["listeners"].(string)
	record["listeners"] = listeners + dump.HTML(describe(l))
}

func (r *EventRecorder) All() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]any, len(r.dispatched))
	for i, d := range r.dispatched {
		out[i] = make(map[string]any, len(d))
		for k, v := range d {
			out[i][k] = v
		}
	}
	return out
}

func describe(l event.Listener) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return dump.Type(l)
}

// EventDispatcher dispatches like event.NewDispatcher and records every
// delivery.
type EventDispatcher struct {
	provider event.ListenerProvider
	recorder *EventRecorder
}

func NewEventDispatcher(provider event.ListenerProvider, recorder *EventRecorder) *EventDispatcher {
	return &EventDispatcher{provider: provider, recorder: recorder}
}

func (d *EventDispatcher) Dispatch(ctx context.Context, e any) any {
	stoppable, _ := e.(event.Stoppable)
	index := d.recorder.Dispatched(e)

	for _, l := range d.provider.ListenersFor(e) {
		if stoppable != nil && stoppable.PropagationStopped() {
			return e
		}
		d.recorder.Listener(index, l)
		l.Handle(ctx, e)
	}
	return e
}

// DispatcherFactory builds recording dispatchers.
type DispatcherFactory struct {
	recorder *EventRecorder
}

func NewDispatcherFactory(recorder *EventRecorder) *DispatcherFactory {
	return &DispatcherFactory{recorder: recorder}
}

func (f *DispatcherFactory) NewDispatcher(provider event.ListenerProvider) event.Dispatcher {
	return NewEventDispatcher(provider, f.recorder)
}

// Events shows the dispatched events.
type Events struct {
	recorder *EventRecorder
}

func NewEvents(recorder *EventRecorder) *Events {
	return &Events{recorder: recorder}
}

func (c *Events) Name() string { return EventsName }

func (c *Events) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	dispatched := c.recorder.All()
	if len(dispatched) == 0 {
		return map[string]any{}, nil
	}
	return map[string]any{"dispatched": dispatched}, nil
}

func (c *Events) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r, &view.Table{
		Rows:    view.Rows(data["dispatched"]),
		Title:   "Dispatched Events",
		Columns: []string{"event", "listeners"},
		HTML:    []string{"event", "listeners"},
	})
}

func (c *Events) Data(data map[string]any) profiler.Summary {
	return countSummary(count(data["dispatched"]), "%d dispatched events")
}
