package queue

import (
	"context"
	"sort"
	"sync"

	"codeberg.org/mutker/reqprof/internal/errors"
	"github.com/google/uuid"
)

// Memory is a FIFO queue held in process memory.
type Memory struct {
	name     string
	priority int

	mu   sync.Mutex
	jobs []*Job
}

func NewMemory(name string, priority int) *Memory {
	return &Memory{name: name, priority: priority}
}

func (q *Memory) Name() string  { return q.name }
func (q *Memory) Priority() int { return q.priority }

func (q *Memory) Push(_ context.Context, job *Job) (string, error) {
	if job == nil || job.Name == "" {
		return "", errors.New().WithMessage(ErrInvalidJob, "job needs a name")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	return job.ID, nil
}

func (q *Memory) Pop(_ context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *Memory) Job(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return nil, false
}

func (q *Memory) Jobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}

func (q *Memory) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Memory) Clear() error {
	q.mu.Lock()
	q.jobs = nil
	q.mu.Unlock()
	return nil
}

// Queues is the registry of named queues.
type Queues struct {
	mu     sync.RWMutex
	queues map[string]Queue
}

func NewQueues(queues ...Queue) *Queues {
	q := &Queues{queues: make(map[string]Queue)}
	for _, queue := range queues {
		q.Add(queue)
	}
	return q
}

func (q *Queues) Add(queue Queue) *Queues {
	q.mu.Lock()
	q.queues[queue.Name()] = queue
	q.mu.Unlock()
	return q
}

func (q *Queues) Queue(name string) (Queue, error) {
	queue, ok := q.Get(name)
	if !ok {
		return nil, errors.New().WithData(ErrQueueNotFound, struct {
			Queue string
		}{
			Queue: name,
		})
	}
	return queue, nil
}

func (q *Queues) Get(name string) (Queue, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	queue, ok := q.queues[name]
	return queue, ok
}

func (q *Queues) Has(name string) bool {
	_, ok := q.Get(name)
	return ok
}

func (q *Queues) Names() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	names := make([]string, 0, len(q.queues))
	for name := range q.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
