package middleware

import (
	"net/http"
	"sort"
	"sync"
)

type passthrough struct{}

func (passthrough) Create(entry Entry) Middleware { return entry.Middleware }

// Dispatcher runs registered middleware by descending priority.
type Dispatcher struct {
	mu      sync.RWMutex
	entries []Entry
	aliases map[string]string
	factory Factory
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{aliases: make(map[string]string), factory: passthrough{}}
}

// Add registers m. Entries with equal priority keep registration order.
func (d *Dispatcher) Add(name string, m Middleware, priority int) *Dispatcher {
	d.mu.Lock()
	d.entries = append(d.entries, Entry{Name: name, Priority: priority, Middleware: m})
	d.mu.Unlock()
	return d
}

func (d *Dispatcher) AddAlias(alias, name string) *Dispatcher {
	d.mu.Lock()
	d.aliases[alias] = name
	d.mu.Unlock()
	return d
}

func (d *Dispatcher) Aliases() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]string, len(d.aliases))
	for k, v := range d.aliases {
		out[k] = v
	}
	return out
}

// Entries returns the middleware in run order.
func (d *Dispatcher) Entries() []Entry {
	d.mu.RLock()
	entries := make([]Entry, len(d.entries))
	copy(entries, d.entries)
	d.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
	return entries
}

// WithFactory returns a dispatcher sharing the entries of d that builds
// middleware through f.
func (d *Dispatcher) WithFactory(f Factory) *Dispatcher {
	d.mu.RLock()
	defer d.mu.RUnlock()

	clone := &Dispatcher{
		entries: append([]Entry(nil), d.entries...),
		aliases: make(map[string]string, len(d.aliases)),
		factory: f,
	}
	for k, v := range d.aliases {
		clone.aliases[k] = v
	}
	return clone
}

// Handler chains every middleware in front of final.
func (d *Dispatcher) Handler(final http.Handler) http.Handler {
	entries := d.Entries()

	h := final
	for i := len(entries) - 1; i >= 0; i-- {
		h = d.factory.Create(entries[i]).Wrap(h)
	}
	return h
}
