package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	o       *Orchestrator
	creator *fakeCreator
	feed    *fakeFeed
	chat    *fakeChat
	tel     *recordingTelemetry
}

func newHarness(t *testing.T, creator *fakeCreator, feed *fakeFeed) *harness {
	t.Helper()
	h := &harness{creator: creator, feed: feed, chat: &fakeChat{}, tel: &recordingTelemetry{}}
	o, err := New(Deps{
		Catalog:   catalog.Builtin(),
		Creator:   creator,
		Feed:      feed,
		Chat:      h.chat,
		Telemetry: h.tel,
		Logger:    quietLogger(),
		Retry:     fastRetry(),
		Debounce:  5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	h.o = o
	return h
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
	_, err = New(Deps{Catalog: catalog.Builtin(), Creator: &fakeCreator{}, Feed: newFakeFeed(neverListed)})
	assert.Error(t, err)
}

func TestOrchestrator_SelectCategoryModes(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	assert.Equal(t, State{Mode: ModeBrowsingExisting}, h.o.State())
	assert.Equal(t, AllAttachments(), h.chat.Attachments())

	h.o.SelectTab(TabNew)
	assert.Equal(t, ModeBrowsingNew, h.o.State().Mode)

	form, err := h.o.SelectCategory("avia")
	require.NoError(t, err)
	require.NotNil(t, form)
	assert.Equal(t, State{Mode: ModeFormOverlay, CategoryID: "avia"}, h.o.State())
	assert.Equal(t, FormAttachments(), h.chat.Attachments())
	st := h.o.Session()
	assert.Equal(t, "avia", st.SelectedCategoryID)
	assert.True(t, st.IsCustomFormCategory)

	form, err = h.o.SelectCategory("restaurant")
	require.NoError(t, err)
	assert.Nil(t, form)
	assert.Equal(t, State{Mode: ModeChatPassthrough, CategoryID: "restaurant"}, h.o.State())
	assert.Equal(t, AllAttachments(), h.chat.Attachments())
	assert.False(t, h.o.Session().IsCustomFormCategory)

	_, err = h.o.SelectCategory("submarine")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, _ = h.o.SelectCategory("hotel")
	h.o.DismissForm()
	assert.Equal(t, State{Mode: ModeBrowsingExisting}, h.o.State())
	assert.Nil(t, h.o.Form())
	assert.Equal(t, SessionState{}, h.o.Session())
	assert.Equal(t, AllAttachments(), h.chat.Attachments())

	assert.Contains(t, h.tel.Events(), telemetry.EventCategorySelected)
}

func TestOrchestrator_PassthroughTagsFirstMessagePerAction(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	ctx := context.Background()

	_, err := h.o.SelectCategory("restaurant")
	require.NoError(t, err)
	require.NoError(t, h.o.Send(ctx, "Table for two at 8pm", "[photo]"))
	require.NoError(t, h.o.Send(ctx, "Somewhere quiet"))

	assert.Equal(t, []string{
		"New request: Restaurants\nTable for two at 8pm",
		"[photo]",
		"New request: Restaurants\nSomewhere quiet",
	}, h.chat.Sent())
}

func TestOrchestrator_GeneralCategoryIsNotTagged(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))

	_, err := h.o.SelectCategory(catalog.DefaultCategoryID)
	require.NoError(t, err)
	require.NoError(t, h.o.Send(context.Background(), "hello"))

	h.o.DismissForm()
	require.NoError(t, h.o.Send(context.Background(), "follow-up"))

	assert.Equal(t, []string{"hello", "follow-up"}, h.chat.Sent())
}

func TestOrchestrator_FormInterceptsAndDebouncesSend(t *testing.T) {
	creator := &fakeCreator{nextID: 42}
	h := newHarness(t, creator, newFakeFeed(listedFrom(1, 42)))
	outcomes := h.o.Outcomes().Subscribe()
	defer outcomes.Close()

	form, err := h.o.SelectCategory("avia")
	require.NoError(t, err)
	fillOneWay(t, form)

	ctx := context.Background()
	require.NoError(t, h.o.Send(ctx, "window seat please"))
	require.NoError(t, h.o.Send(ctx, "[photo]"))
	require.NoError(t, h.o.Send(ctx))

	select {
	case out := <-outcomes.C:
		require.NoError(t, out.Err)
		assert.Equal(t, int64(42), out.Task.ID)
		assert.Equal(t, "avia", out.CategoryID)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced submit never resolved")
	}

	assert.Empty(t, h.chat.Sent(), "form text never reaches the conversation")
	assert.Equal(t, 1, creator.Calls())
	require.Len(t, creator.created, 1)
	assert.Equal(t, "window seat please\n[photo]", creator.created[0]["comment"])
}

func TestOrchestrator_CommentStartsFreshAfterSubmit(t *testing.T) {
	creator := &fakeCreator{nextID: 42}
	h := newHarness(t, creator, newFakeFeed(neverListed))
	outcomes := h.o.Outcomes().Subscribe()
	defer outcomes.Close()

	_, err := h.o.SelectCategory("avia")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.o.Send(ctx, "aisle"))
	select {
	case out := <-outcomes.C:
		assert.ErrorIs(t, out.Err, ErrBlankFields)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced submit never resolved")
	}
	assert.Equal(t, "aisle", h.o.Form().Comment())

	require.NoError(t, h.o.Send(ctx, "window"))
	require.NoError(t, h.o.Send(ctx, "[photo]"))
	select {
	case out := <-outcomes.C:
		assert.ErrorIs(t, out.Err, ErrBlankFields)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced submit never resolved")
	}
	assert.Equal(t, "window\n[photo]", h.o.Form().Comment())
	assert.Zero(t, creator.Calls())
}

func TestOrchestrator_HandoffTransplantsDraft(t *testing.T) {
	h := newHarness(t, &fakeCreator{nextID: 42}, newFakeFeed(listedFrom(3, 42)))
	draft := "also need a car"
	h.chat.SetDraft(&draft)
	h.chat.ops = nil

	form, err := h.o.SelectCategory("avia")
	require.NoError(t, err)
	fillOneWay(t, form)

	got, err := h.o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)

	assert.Equal(t, []string{"clear-draft", "open:42", "set-draft:also need a car"}, h.chat.ops)
	require.Len(t, h.chat.opened, 1)
	assert.Equal(t, "conv-1", h.chat.opened[0].ConversationID)

	assert.Equal(t, State{Mode: ModeBrowsingExisting}, h.o.State())
	assert.Nil(t, h.o.Form())
	assert.Equal(t, SessionState{}, h.o.Session())
	assert.Equal(t, AllAttachments(), h.chat.Attachments())
	assert.Subset(t, h.tel.Events(), []string{telemetry.EventRequestSubmitted, telemetry.EventRequestConfirmed})
}

func TestOrchestrator_HandoffWithoutDraft(t *testing.T) {
	h := newHarness(t, &fakeCreator{nextID: 9}, newFakeFeed(listedFrom(1, 9)))
	form, _ := h.o.SelectCategory("vip_lounge")
	fillOneWay(t, form)

	_, err := h.o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clear-draft", "open:9"}, h.chat.ops)
}

func TestOrchestrator_HandoffOpenFailureRestoresDraft(t *testing.T) {
	h := newHarness(t, &fakeCreator{nextID: 9}, newFakeFeed(listedFrom(1, 9)))
	h.chat.openErr = errors.New("chat sdk down")
	draft := "keep me"
	h.chat.SetDraft(&draft)

	form, _ := h.o.SelectCategory("avia")
	fillOneWay(t, form)

	got, err := h.o.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, h.chat.openErr)
	assert.ErrorIs(t, err, ErrHandoffFailed)
	var he *HandoffError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, int64(9), he.Task.ID)
	assert.Equal(t, int64(9), got.ID, "the created task is still returned")

	d, ok := h.chat.CurrentDraft()
	assert.True(t, ok)
	assert.Equal(t, "keep me", d)
	assert.Nil(t, h.o.Form(), "the task exists, so the form must not invite a resubmit")
	assert.Equal(t, ModeBrowsingExisting, h.o.State().Mode)
	assert.Contains(t, h.tel.Events(), telemetry.EventRequestFailed)
}

func TestOrchestrator_BlankFieldsKeepsForm(t *testing.T) {
	creator := &fakeCreator{nextID: 1}
	h := newHarness(t, creator, newFakeFeed(neverListed))
	form, _ := h.o.SelectCategory("avia")

	_, err := h.o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBlankFields)
	assert.Zero(t, creator.Calls())
	assert.Same(t, form, h.o.Form())
	assert.Equal(t, ModeFormOverlay, h.o.State().Mode)
	assert.False(t, h.o.Pending())
}

func TestOrchestrator_ServerFailureKeepsFormAndAllowsRetry(t *testing.T) {
	creator := &fakeCreator{nextID: 5, err: errors.New("503")}
	h := newHarness(t, creator, newFakeFeed(listedFrom(1, 5)))
	form, _ := h.o.SelectCategory("avia")
	fillOneWay(t, form)

	_, err := h.o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrServerResponseFailure)
	assert.Same(t, form, h.o.Form())
	st := h.o.Session()
	assert.Nil(t, st.Pending)
	assert.Equal(t, "avia", st.SelectedCategoryID)

	creator.mu.Lock()
	creator.err = nil
	creator.mu.Unlock()

	got, err := h.o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, 2, creator.Calls())
}

func TestOrchestrator_TimeoutDismissesForm(t *testing.T) {
	feed := newFakeFeed(neverListed)
	h := newHarness(t, &fakeCreator{nextID: 77}, feed)
	form, _ := h.o.SelectCategory("avia")
	fillOneWay(t, form)

	_, err := h.o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 10, feed.Refreshes())
	assert.Equal(t, State{Mode: ModeBrowsingExisting}, h.o.State())
	assert.Equal(t, SessionState{}, h.o.Session())
	assert.Contains(t, h.tel.Events(), telemetry.EventRequestFailed)
}

func startPendingSubmit(t *testing.T, h *harness) <-chan error {
	t.Helper()
	form, err := h.o.SelectCategory("avia")
	require.NoError(t, err)
	fillOneWay(t, form)

	done := make(chan error, 1)
	go func() {
		_, err := h.o.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return h.feed.Refreshes() >= 1 }, time.Second, time.Millisecond)
	return done
}

func slowPolling(t *testing.T) *harness {
	h := newHarness(t, &fakeCreator{nextID: 11}, newFakeFeed(neverListed))
	h.o.coordinator.policy.Interval = time.Hour
	return h
}

func TestOrchestrator_DismissCancelsPolling(t *testing.T) {
	h := slowPolling(t)
	done := startPendingSubmit(t, h)
	assert.True(t, h.o.Pending())

	h.o.DismissForm()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSubmissionCancelled)
	case <-time.After(time.Second):
		t.Fatal("dismiss did not stop polling")
	}
	assert.Equal(t, 1, h.feed.Refreshes())
	assert.False(t, h.o.Pending())
	assert.Equal(t, State{Mode: ModeBrowsingExisting}, h.o.State())
	assert.Empty(t, h.chat.opened)
}

func TestOrchestrator_RejectsWhilePending(t *testing.T) {
	h := slowPolling(t)
	done := startPendingSubmit(t, h)

	_, err := h.o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionPending)
	assert.ErrorIs(t, h.o.Send(context.Background(), "again"), ErrSubmissionPending)
	_, err = h.o.SelectCategory("avia")
	assert.ErrorIs(t, err, ErrSubmissionPending)

	// A different category cancels the wait instead.
	_, err = h.o.SelectCategory("hotel")
	require.NoError(t, err)
	assert.ErrorIs(t, <-done, ErrSubmissionCancelled)
	assert.Equal(t, State{Mode: ModeFormOverlay, CategoryID: "hotel"}, h.o.State())
	assert.Equal(t, 1, h.creator.Calls())
}

func TestOrchestrator_SubmitWithoutForm(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	_, err := h.o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoForm)
	assert.ErrorIs(t, h.o.EditForm(func(Form) error { return nil }), ErrNoForm)
}

func TestOrchestrator_StateChangesEmitted(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	var seen []Mode
	h.o.StateChanges().Handle(func(s State) { seen = append(seen, s.Mode) })

	h.o.SelectTab(TabNew)
	_, _ = h.o.SelectCategory("avia")
	h.o.DismissForm()

	assert.Equal(t, []Mode{ModeBrowsingNew, ModeFormOverlay, ModeBrowsingExisting}, seen)
}

func TestOrchestrator_StateHandlerMayCallBack(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	var seen []State
	h.o.StateChanges().Handle(func(State) {
		seen = append(seen, h.o.State())
		_ = h.o.Form()
		_ = h.o.Pending()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.o.SelectTab(TabNew)
		_, _ = h.o.SelectCategory("avia")
		h.o.DismissForm()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("state handler calling back into the orchestrator blocked")
	}

	assert.Equal(t, []State{
		{Mode: ModeBrowsingNew},
		{Mode: ModeFormOverlay},
		{Mode: ModeBrowsingExisting},
	}, seen)
}

func TestOrchestrator_StateHandlerTransitionsKeepOrder(t *testing.T) {
	h := newHarness(t, &fakeCreator{}, newFakeFeed(neverListed))
	var seen []Mode
	h.o.StateChanges().Handle(func(s State) {
		seen = append(seen, s.Mode)
		if s.Mode == ModeBrowsingNew {
			_, _ = h.o.SelectCategory("avia")
		}
	})

	h.o.SelectTab(TabNew)

	assert.Equal(t, []Mode{ModeBrowsingNew, ModeFormOverlay}, seen)
	assert.Equal(t, ModeFormOverlay, h.o.State().Mode)
}

func TestOrchestrator_HandoffPublishesOnlyFinalState(t *testing.T) {
	h := newHarness(t, &fakeCreator{nextID: 42}, newFakeFeed(listedFrom(1, 42)))
	form, err := h.o.SelectCategory("avia")
	require.NoError(t, err)
	fillOneWay(t, form)

	type snapshot struct {
		state       State
		opened      int
		attachments []AttachmentType
	}
	var seen []snapshot
	h.o.StateChanges().Handle(func(s State) {
		h.chat.mu.Lock()
		opened := len(h.chat.opened)
		h.chat.mu.Unlock()
		seen = append(seen, snapshot{state: h.o.State(), opened: opened, attachments: h.chat.Attachments()})
	})

	_, err = h.o.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, State{Mode: ModeBrowsingExisting}, seen[0].state)
	assert.Equal(t, 1, seen[0].opened, "the conversation is open before the form goes away")
	assert.Equal(t, AllAttachments(), seen[0].attachments)
}
