// Package taskfeed publishes the user's task list. Every completed refresh emits
// the full task set, whoever asked for it.
package taskfeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/task"
)

// Lister fetches the current task list from the backend.
type Lister interface {
	ListTasks(ctx context.Context) ([]task.Task, error)
}

// Loaded is emitted once per completed refresh. Err is set when the fetch failed,
// in which case Tasks is nil.
type Loaded struct {
	Tasks []task.Task
	Err   error
}

// Contains reports whether the loaded set holds task id.
func (l Loaded) Contains(id int64) (task.Task, bool) {
	if l.Err != nil {
		return task.Task{}, false
	}
	return task.Find(l.Tasks, id)
}

// Feed wraps a Lister and fans refresh results out to subscribers.
type Feed struct {
	lister Lister
	loaded *events.Emitter[Loaded]
	logger *slog.Logger

	mu     sync.Mutex // serialises fetch+emit so events leave in completion order
	latest []task.Task
	wg     sync.WaitGroup
}

// New creates a feed over lister.
func New(lister Lister, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{lister: lister, loaded: events.NewEmitter[Loaded](), logger: logger}
}

// Loaded is the tasks-loaded signal.
func (f *Feed) Loaded() *events.Emitter[Loaded] { return f.loaded }

// RequestRefresh starts an asynchronous fetch. The result arrives on Loaded.
func (f *Feed) RequestRefresh(ctx context.Context) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		_, _ = f.Retrieve(ctx)
	}()
}

// Retrieve fetches the task list, emits it on Loaded and returns it.
func (f *Feed) Retrieve(ctx context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tasks, err := f.lister.ListTasks(ctx)
	if err != nil {
		err = fmt.Errorf("list tasks: %w", err)
		f.logger.Debug("task refresh failed", "error", err)
		f.loaded.Emit(Loaded{Err: err})
		return nil, err
	}
	f.latest = tasks
	f.logger.Debug("tasks loaded", "count", len(tasks))
	f.loaded.Emit(Loaded{Tasks: tasks})
	return tasks, nil
}

// Latest returns the last successfully loaded task set.
func (f *Feed) Latest() []task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]task.Task(nil), f.latest...)
}

// Wait blocks until every refresh started by RequestRefresh has emitted.
func (f *Feed) Wait() {
	f.wg.Wait()
}
