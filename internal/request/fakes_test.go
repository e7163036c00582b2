package request

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/josephgoksu/concierge/internal/airport"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/itinerary"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/taskfeed"
	"github.com/stretchr/testify/require"
)

var (
	jfk = airport.Airport{Code: "JFK", City: "New York"}
	lax = airport.Airport{Code: "LAX", City: "Los Angeles"}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	nextID  int64
	err     error
	block   chan struct{}
	created []task.Payload
}

func (c *fakeCreator) CreateTask(ctx context.Context, categoryID string, payload task.Payload) (int64, error) {
	c.mu.Lock()
	c.calls++
	c.created = append(c.created, payload)
	block, err, id := c.block, c.err, c.nextID
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (c *fakeCreator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeFeed answers each refresh synchronously with respond(n), n counting from 1.
type fakeFeed struct {
	mu        sync.Mutex
	refreshes int
	respond   func(n int) taskfeed.Loaded
	loaded    *events.Emitter[taskfeed.Loaded]
}

func newFakeFeed(respond func(n int) taskfeed.Loaded) *fakeFeed {
	return &fakeFeed{respond: respond, loaded: events.NewEmitter[taskfeed.Loaded]()}
}

func (f *fakeFeed) RequestRefresh(ctx context.Context) {
	f.mu.Lock()
	f.refreshes++
	n := f.refreshes
	f.mu.Unlock()
	f.loaded.Emit(f.respond(n))
}

func (f *fakeFeed) Loaded() *events.Emitter[taskfeed.Loaded] { return f.loaded }

func (f *fakeFeed) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// neverListed never contains the created task.
func neverListed(int) taskfeed.Loaded {
	return taskfeed.Loaded{Tasks: []task.Task{{ID: 999, Title: "someone else's"}}}
}

// listedFrom includes task id from the nth refresh on.
func listedFrom(nth int, id int64) func(int) taskfeed.Loaded {
	return func(n int) taskfeed.Loaded {
		if n < nth {
			return neverListed(n)
		}
		return taskfeed.Loaded{Tasks: []task.Task{{ID: 999}, {ID: id, Title: "confirmed", ConversationID: "conv-1"}}}
	}
}

type fakeChat struct {
	mu          sync.Mutex
	sent        []string
	draft       *string
	attachments []AttachmentType
	opened      []task.Task
	openErr     error
	ops         []string
}

func (c *fakeChat) SendMessage(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChat) CurrentDraft() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return "", false
	}
	return *c.draft, true
}

func (c *fakeChat) SetDraft(d *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d == nil {
		c.ops = append(c.ops, "clear-draft")
		c.draft = nil
		return
	}
	v := *d
	c.draft = &v
	c.ops = append(c.ops, "set-draft:"+v)
}

func (c *fakeChat) SetAllowedAttachments(types []AttachmentType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments = append([]AttachmentType(nil), types...)
}

func (c *fakeChat) OpenConversation(ctx context.Context, t task.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.opened = append(c.opened, t)
	c.ops = append(c.ops, fmt.Sprintf("open:%d", t.ID))
	return nil
}

func (c *fakeChat) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeChat) Attachments() []AttachmentType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AttachmentType(nil), c.attachments...)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Track(event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) Close() error { return nil }

func (r *recordingTelemetry) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Interval: time.Millisecond}
}

func fillOneWay(t *testing.T, f Form) {
	t.Helper()
	itf, ok := f.(ItineraryForm)
	require.True(t, ok, "form %T has no itinerary", f)
	e := itf.Editor()
	e.SelectAirport(itinerary.Departure, 0, jfk)
	e.SelectAirport(itinerary.Arrival, 0, lax)
	e.SelectDate(itinerary.DateSingle, 0, time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC))
}

func aviaForm(t *testing.T) Form {
	t.Helper()
	cat, ok := catalog.Builtin().Category("avia")
	require.True(t, ok)
	f, err := NewForm(cat)
	require.NoError(t, err)
	return f
}
