package collector

import (
	"context"
	"net/http"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/queue"
	"codeberg.org/mutker/reqprof/internal/view"
)

// JobRecorder records pushed jobs.
type JobRecorder struct {
	mu     sync.Mutex
	pushed []map[string]any
}

func NewJobRecorder() *JobRecorder {
	return &JobRecorder{}
}

func (r *JobRecorder) Pushed(queueName string, job *queue.Job) {
	r.mu.Lock()
	r.pushed = append(r.pushed, map[string]any{
		"queue": queueName,
		"job":   dump.HTML(job),
	})
	r.mu.Unlock()
}

func (r *JobRecorder) All() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.pushed...)
}

// Queues is a queue.Provider handing out recording queues.
type Queues struct {
	queues   queue.Provider
	recorder *JobRecorder
}

func NewQueues(queues queue.Provider, recorder *JobRecorder) *Queues {
	return &Queues{queues: queues, recorder: recorder}
}

func (q *Queues) Queue(name string) (queue.Queue, error) {
	inner, err := q.queues.Queue(name)
	if err != nil {
		return nil, err
	}
	return &Queue{Queue: inner, recorder: q.recorder}, nil
}

func (q *Queues) Get(name string) (queue.Queue, bool) {
	inner, ok := q.queues.Get(name)
	if !ok {
		return nil, false
	}
	return &Queue{Queue: inner, recorder: q.recorder}, true
}

func (q *Queues) Has(name string) bool { return q.queues.Has(name) }
func (q *Queues) Names() []string      { return q.queues.Names() }

// Queue records every push to the embedded queue.
type Queue struct {
	queue.Queue
	recorder *JobRecorder
}

func (q *Queue) Push(ctx context.Context, job *queue.Job) (string, error) {
	id, err := q.Queue.Push(ctx, job)
	if err != nil {
		return "", err
	}
	q.recorder.Pushed(q.Name(), job)
	return id, nil
}

// Jobs shows the pushed jobs.
type Jobs struct {
	recorder *JobRecorder
}

func NewJobs(recorder *JobRecorder) *Jobs {
	return &Jobs{recorder: recorder}
}

func (c *Jobs) Name() string { return JobsName }

func (c *Jobs) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	pushed := c.recorder.All()
	if len(pushed) == 0 {
		return map[string]any{}, nil
	}
	return map[string]any{"pushed": pushed}, nil
}

func (c *Jobs) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r, &view.Table{
		Rows:    view.Rows(data["pushed"]),
		Title:   "Pushed Jobs",
		Columns: []string{"queue", "job"},
		HTML:    []string{"job"},
	})
}

func (c *Jobs) Data(data map[string]any) profiler.Summary {
	return countSummary(count(data["pushed"]), "%d pushed jobs")
}
