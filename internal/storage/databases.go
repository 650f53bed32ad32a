package storage

import (
	"io"
	"sort"
	"sync"

	"codeberg.org/mutker/reqprof/internal/errors"
)

// Registry holds named storages and default roles.
type Registry struct {
	mu        sync.Mutex
	factories map[string]func() (Storage, error)
	storages  map[string]Storage
	defaults  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]func() (Storage, error)),
		storages:  make(map[string]Storage),
		defaults:  make(map[string]string),
	}
}

func (r *Registry) Add(name string, s Storage) *Registry {
	r.mu.Lock()
	r.storages[name] = s
	r.mu.Unlock()
	return r
}

// Register adds a storage created on first use.
func (r *Registry) Register(name string, factory func() (Storage, error)) *Registry {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
	return r
}

func (r *Registry) AddDefault(role, name string) *Registry {
	r.mu.Lock()
	r.defaults[role] = name
	r.mu.Unlock()
	return r
}

// Get returns a fresh builder over the named storage.
func (r *Registry) Get(name string) (Storage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.storages[name]; ok {
		return s.New(), nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.New().WithData(ErrDatabaseNotFound, struct {
			Database string
		}{
			Database: name,
		})
	}

	s, err := factory()
	if err != nil {
		return nil, errors.New().Wrap(ErrOpenFailed, err)
	}
	r.storages[name] = s
	delete(r.factories, name)

	return s.New(), nil
}

func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, stored := r.storages[name]
	_, registered := r.factories[name]
	return stored || registered
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.storages)+len(r.factories))
	for name := range r.storages {
		names = append(names, name)
	}
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Default(role string) (Storage, error) {
	r.mu.Lock()
	name, ok := r.defaults[role]
	r.mu.Unlock()

	if !ok {
		return nil, errors.New().WithData(ErrDatabaseNotFound, struct {
			Role string
		}{
			Role: role,
		})
	}
	return r.Get(name)
}

func (r *Registry) Defaults() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.defaults))
	for k, v := range r.defaults {
		out[k] = v
	}
	return out
}

// Close closes every opened storage that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for _, s := range r.storages {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
