package request

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/taskfeed"
)

const (
	DefaultMaxAttempts   = 10
	DefaultRetryInterval = time.Second
)

// RetryPolicy bounds the wait for a created task to show up in the task list.
// The interval is fixed; there is no backoff.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy is 10 attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Interval: DefaultRetryInterval}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Interval < 0 {
		p.Interval = 0
	}
	return p
}

// Coordinator validates a form, creates the task and polls the task feed until
// the task is listed. It is the only place lower-level failures are turned into
// submission error kinds.
type Coordinator struct {
	creator TaskCreator
	feed    TaskFeed
	policy  RetryPolicy
	logger  *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(creator TaskCreator, feed TaskFeed, policy RetryPolicy, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{creator: creator, feed: feed, policy: policy.normalized(), logger: logger}
}

// Policy returns the effective retry policy.
func (c *Coordinator) Policy() RetryPolicy { return c.policy }

// Submit runs Prepare then Deliver.
func (c *Coordinator) Submit(ctx context.Context, session *Session, form Form) (task.Task, error) {
	p, err := c.Prepare(session, form)
	if err != nil {
		return task.Task{}, err
	}
	return c.Deliver(ctx, session, p)
}

// Prepare validates form and records the pending submission on session. It never
// touches the network. Validation failures return KindBlankFields.
func (c *Coordinator) Prepare(session *Session, form Form) (Pending, error) {
	if form == nil {
		return Pending{}, ErrNoForm
	}
	if fields := form.Validate(); len(fields) > 0 {
		return Pending{}, &SubmissionError{Kind: KindBlankFields, Fields: fields}
	}
	p := Pending{CategoryID: form.Category().ID, Payload: form.Payload()}
	if !session.SetPendingIfAbsent(p) {
		return Pending{}, ErrSubmissionPending
	}
	return p, nil
}

// Deliver sends p and waits for the created task to be listed. Context
// cancellation is returned as is, without a kind.
func (c *Coordinator) Deliver(ctx context.Context, session *Session, p Pending) (task.Task, error) {
	id, err := c.creator.CreateTask(ctx, p.CategoryID, p.Payload)
	if err != nil {
		if ctx.Err() != nil {
			return task.Task{}, ctx.Err()
		}
		c.logger.Warn("create task failed", "category", p.CategoryID, "error", err)
		return task.Task{}, &SubmissionError{Kind: KindServerResponseFailure, Err: err}
	}
	if !session.SetWaitingTaskIfAbsent(ctx, id) {
		if err := ctx.Err(); err != nil {
			return task.Task{}, err
		}
		waiting, _ := session.WaitingTaskID()
		return task.Task{}, fmt.Errorf("session already waiting for task %d", waiting)
	}
	c.logger.Debug("task created, waiting for confirmation", "task_id", id)
	return c.await(ctx, session, id)
}

// loadedQueue buffers tasks-loaded events without dropping any, so the result
// of the coordinator's own refresh cannot be lost to a full subscriber buffer.
type loadedQueue struct {
	mu     sync.Mutex
	events []taskfeed.Loaded
	ready  chan struct{}
}

func newLoadedQueue() *loadedQueue {
	return &loadedQueue{ready: make(chan struct{}, 1)}
}

func (q *loadedQueue) push(ev taskfeed.Loaded) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *loadedQueue) pop() (taskfeed.Loaded, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return taskfeed.Loaded{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}

// next blocks until an event is queued or ctx is done.
func (q *loadedQueue) next(ctx context.Context) (taskfeed.Loaded, error) {
	for {
		if ev, ok := q.pop(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return taskfeed.Loaded{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// await refreshes the feed and counts one attempt per tasks-loaded event until
// id appears or the policy is exhausted. Events arriving between attempts are
// only checked for id.
func (c *Coordinator) await(ctx context.Context, session *Session, id int64) (task.Task, error) {
	queue := newLoadedQueue()
	sub := c.feed.Loaded().Handle(queue.push)
	defer sub.Close()

	for {
		c.feed.RequestRefresh(ctx)

		ev, err := queue.next(ctx)
		if err != nil {
			return task.Task{}, err
		}
		if t, found := ev.Contains(id); found {
			return t, nil
		}

		attempts := session.IncrementRetry()
		if attempts >= c.policy.MaxAttempts {
			c.logger.Warn("task not confirmed", "task_id", id, "attempts", attempts)
			return task.Task{}, &SubmissionError{Kind: KindTimeout, TaskID: id}
		}

		if t, found, err := c.pause(ctx, queue, id); err != nil || found {
			return t, err
		}
	}
}

// pause waits one retry interval, returning early when an unsolicited refresh
// already lists id. Everything queued so far is consumed.
func (c *Coordinator) pause(ctx context.Context, queue *loadedQueue, id int64) (task.Task, bool, error) {
	timer := time.NewTimer(c.policy.Interval)
	defer timer.Stop()
	for {
		for {
			ev, ok := queue.pop()
			if !ok {
				break
			}
			if t, found := ev.Contains(id); found {
				return t, true, nil
			}
		}
		select {
		case <-ctx.Done():
			return task.Task{}, false, ctx.Err()
		case <-timer.C:
			return task.Task{}, false, nil
		case <-queue.ready:
		}
	}
}
