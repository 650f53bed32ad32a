package queue

import "context"

// Job is a unit of deferred work.
type Job struct {
	ID      string
	Name    string
	Payload map[string]any
}

type Queue interface {
	Name() string
	Priority() int
	// Push enqueues job and returns its id.
	Push(ctx context.Context, job *Job) (string, error)
	// Pop dequeues the oldest job, or nil when empty.
	Pop(ctx context.Context) (*Job, error)
	Job(id string) (*Job, bool)
	Jobs() []*Job
	Size() int
	Clear() error
}

// Provider resolves queues by name.
type Provider interface {
	Queue(name string) (Queue, error)
	Get(name string) (Queue, bool)
	Has(name string) bool
	Names() []string
}
