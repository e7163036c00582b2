// Package request implements the request creation flow: picking a category,
// filling its form, submitting it and handing the user over to the chat of the
// confirmed task.
package request

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/telemetry"
)

// Deps are the orchestrator's collaborators and tunables.
type Deps struct {
	Catalog   Catalog
	Creator   TaskCreator
	Feed      TaskFeed
	Chat      ChatSurface
	Telemetry telemetry.Client
	Logger    *slog.Logger

	Retry    RetryPolicy
	Debounce time.Duration
}

// Outcome is emitted once per resolved submission.
type Outcome struct {
	CategoryID string
	Task       task.Task
	Err        error
}

// Orchestrator owns the session, controller, coordinator and handoff for one
// request screen. All state changes happen under one lock; the create call and
// polling waits run without it. State changes are published after the lock is
// released, so subscribers may call back into the orchestrator.
type Orchestrator struct {
	mu          sync.Mutex
	session     *Session
	controller  *Controller
	coordinator *Coordinator
	handoff     *Handoff
	debouncer   *Debouncer

	chat      ChatSurface
	telemetry telemetry.Client
	logger    *slog.Logger

	baseCtx    context.Context
	stop       context.CancelFunc
	cancel     context.CancelFunc // in-flight submission
	generation uint64
	outcomes   *events.Emitter[Outcome]

	// gesture collects the texts sent since the last Prepare; they make up
	// the form comment of the coming debounced submit.
	gesture []string

	pendingStates []State
	delivering    bool
}

// New wires an orchestrator. Catalog, Creator, Feed and Chat are required.
func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("request: catalog is required")
	case d.Creator == nil:
		return nil, errors.New("request: task creator is required")
	case d.Feed == nil:
		return nil, errors.New("request: task feed is required")
	case d.Chat == nil:
		return nil, errors.New("request: chat surface is required")
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.NewNoopClient()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Retry == (RetryPolicy{}) {
		d.Retry = DefaultRetryPolicy()
	}

	session := &Session{}
	controller := NewController(d.Catalog, d.Chat, session)
	o := &Orchestrator{
		session:     session,
		controller:  controller,
		coordinator: NewCoordinator(d.Creator, d.Feed, d.Retry, d.Logger),
		handoff:     NewHandoff(d.Chat, controller),
		chat:        d.Chat,
		telemetry:   d.Telemetry,
		logger:      d.Logger,
		outcomes:    events.NewEmitter[Outcome](),
	}
	o.baseCtx, o.stop = context.WithCancel(context.Background())
	o.debouncer = NewDebouncer(d.Debounce, func() { _, _ = o.Submit(o.baseCtx) })
	return o, nil
}

// unlock releases o.mu and publishes the controller transitions made while it
// was held. One goroutine delivers at a time, in order; a transition made by a
// subscriber is queued and delivered by the same loop.
func (o *Orchestrator) unlock() {
	o.pendingStates = append(o.pendingStates, o.controller.TakeChanges()...)
	if o.delivering || len(o.pendingStates) == 0 {
		o.mu.Unlock()
		return
	}
	o.delivering = true
	for len(o.pendingStates) > 0 {
		s := o.pendingStates[0]
		o.pendingStates = o.pendingStates[1:]
		o.mu.Unlock()
		o.controller.Changes().Emit(s)
		o.mu.Lock()
	}
	o.delivering = false
	o.mu.Unlock()
}

// Outcomes emits the result of every submission, including debounced ones.
func (o *Orchestrator) Outcomes() *events.Emitter[Outcome] { return o.outcomes }

// StateChanges emits controller transitions.
func (o *Orchestrator) StateChanges() *events.Emitter[State] { return o.controller.Changes() }

// State returns the controller state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.controller.State()
}

// Session returns a copy of the session.
func (o *Orchestrator) Session() SessionState {
	return o.session.Snapshot()
}

// Form returns the open form, or nil.
func (o *Orchestrator) Form() Form {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.controller.Form()
}

// Pending reports whether a submission is in flight.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

// EditForm runs fn against the open form under the orchestrator lock.
func (o *Orchestrator) EditForm(fn func(Form) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	f := o.controller.Form()
	if f == nil {
		return ErrNoForm
	}
	return fn(f)
}

// SelectTab switches tabs. Leaving a form cancels its submission.
func (o *Orchestrator) SelectTab(tab Tab) {
	o.mu.Lock()
	defer o.unlock()
	if o.controller.Form() != nil {
		o.cancelInflight()
	}
	o.controller.SelectTab(tab)
}

// SelectCategory opens the category's form or chat passthrough. Selecting a
// different category cancels an in-flight submission; reselecting the pending
// one is rejected.
func (o *Orchestrator) SelectCategory(id string) (Form, error) {
	o.mu.Lock()
	defer o.unlock()

	if o.cancel != nil {
		if o.controller.State().CategoryID == id {
			return nil, ErrSubmissionPending
		}
		o.cancelInflight()
	}

	form, err := o.controller.SelectCategory(id)
	if err != nil {
		return nil, err
	}
	o.gesture = nil
	o.telemetry.Track(telemetry.EventCategorySelected, telemetry.Properties{
		"category":    id,
		"custom_form": form != nil,
	})
	return form, nil
}

// DismissForm abandons the form and stops waiting for its submission. An
// already sent create request is not rolled back.
func (o *Orchestrator) DismissForm() {
	o.mu.Lock()
	defer o.unlock()
	o.cancelInflight()
	o.controller.DismissForm()
}

// cancelInflight must be called with o.mu held.
func (o *Orchestrator) cancelInflight() {
	o.debouncer.Cancel()
	o.gesture = nil
	if o.cancel == nil {
		return
	}
	o.cancel()
	o.cancel = nil
	o.generation++
	o.session.ClearSubmission()
	o.logger.Debug("submission cancelled")
}

// Send handles the messages of one user action. With a form open they become
// the form comment and a debounced submit is scheduled; nothing reaches the
// conversation. Sends landing in one debounce window are joined into one
// comment. Otherwise they are forwarded, the first one tagged in chat
// passthrough.
func (o *Orchestrator) Send(ctx context.Context, messages ...string) error {
	o.mu.Lock()
	if o.controller.Intercepts() {
		defer o.unlock()
		if o.cancel != nil {
			return ErrSubmissionPending
		}
		if text := strings.TrimSpace(strings.Join(messages, "\n")); text != "" {
			o.gesture = append(o.gesture, text)
			o.controller.Form().SetComment(strings.Join(o.gesture, "\n"))
		}
		o.debouncer.Trigger()
		return nil
	}
	out := o.controller.TagOutbound(messages)
	o.unlock()

	for _, m := range out {
		if err := o.chat.SendMessage(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates and delivers the open form, then hands off to the chat of
// the confirmed task. Failures are *SubmissionError except cancellation
// (ErrSubmissionCancelled or the context's error), ErrSubmissionPending and a
// *HandoffError, which comes with the confirmed task.
func (o *Orchestrator) Submit(ctx context.Context) (task.Task, error) {
	o.mu.Lock()
	if o.cancel != nil {
		o.unlock()
		return task.Task{}, ErrSubmissionPending
	}
	form := o.controller.Form()
	if form == nil {
		o.unlock()
		return task.Task{}, ErrNoForm
	}
	categoryID := form.Category().ID

	pending, err := o.coordinator.Prepare(o.session, form)
	o.gesture = nil
	if err != nil {
		o.unlock()
		o.resolve(categoryID, task.Task{}, err)
		return task.Task{}, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	gen := o.generation
	o.unlock()

	o.telemetry.Track(telemetry.EventRequestSubmitted, telemetry.Properties{"category": categoryID})
	t, err := o.coordinator.Deliver(subCtx, o.session, pending)

	o.mu.Lock()
	if o.generation != gen {
		o.unlock()
		cancel()
		o.resolve(categoryID, task.Task{}, ErrSubmissionCancelled)
		return task.Task{}, ErrSubmissionCancelled
	}
	o.cancel = nil
	cancel()

	switch {
	case err == nil:
		err = o.handoff.Complete(ctx, t)
	case KindOf(err) == KindTimeout:
		// The task probably exists; keeping the form would invite a duplicate.
		o.controller.DismissForm()
	default:
		o.session.ClearSubmission()
	}
	o.unlock()

	o.resolve(categoryID, t, err)
	if err != nil && !errors.Is(err, ErrHandoffFailed) {
		return task.Task{}, err
	}
	return t, err
}

func (o *Orchestrator) resolve(categoryID string, t task.Task, err error) {
	if err != nil {
		props := telemetry.Properties{"category": categoryID, "error_kind": string(KindOf(err))}
		switch {
		case errors.Is(err, ErrSubmissionCancelled):
			props["error_kind"] = "cancelled"
		case errors.Is(err, ErrHandoffFailed):
			props["error_kind"] = "handoff_failed"
			props["task_id"] = t.ID
		}
		o.telemetry.Track(telemetry.EventRequestFailed, props)
		o.logger.Info("submission failed", "category", categoryID, "error", err)
	} else {
		o.telemetry.Track(telemetry.EventRequestConfirmed, telemetry.Properties{
			"category": categoryID,
			"task_id":  t.ID,
		})
		o.logger.Info("request confirmed", "category", categoryID, "task_id", t.ID)
	}
	o.outcomes.Emit(Outcome{CategoryID: categoryID, Task: t, Err: err})
}

// Close stops pending debounced submits and cancels any in-flight submission.
func (o *Orchestrator) Close() {
	o.debouncer.Stop()
	o.mu.Lock()
	o.cancelInflight()
	o.unlock()
	o.stop()
}
