package request

import (
	"fmt"

	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/task"
)

// Mode is the view the request screen is in.
type Mode string

const (
	ModeBrowsingExisting Mode = "browsing_existing"
	ModeBrowsingNew      Mode = "browsing_new"
	ModeFormOverlay      Mode = "form_overlay"
	ModeChatPassthrough  Mode = "chat_passthrough"
)

// Tab is one of the two top-level tabs.
type Tab string

const (
	TabExisting Tab = "existing"
	TabNew      Tab = "new"
)

// State is the controller's mode plus the category it applies to, if any.
type State struct {
	Mode       Mode   `json:"mode"`
	CategoryID string `json:"categoryId,omitempty"`
}

// Controller tracks the active category and the form overlaid on the chat
// surface. It does no locking of its own; the orchestrator serialises calls.
// Transitions are queued, not emitted: the owner publishes them with
// TakeChanges once it is safe for subscribers to call back in.
type Controller struct {
	catalog Catalog
	chat    ChatSurface
	session *Session

	state State
	form  Form
	// category of the current mode, kept for tagging without a second lookup
	category catalog.Category
	changes  *events.Emitter[State]
	queued   []State
}

// NewController starts in browsing_existing with every attachment type allowed.
func NewController(cat Catalog, chat ChatSurface, session *Session) *Controller {
	c := &Controller{
		catalog: cat,
		chat:    chat,
		session: session,
		state:   State{Mode: ModeBrowsingExisting},
		changes: events.NewEmitter[State](),
	}
	chat.SetAllowedAttachments(AllAttachments())
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Form returns the overlaid form, or nil outside form_overlay.
func (c *Controller) Form() Form { return c.form }

// Changes is where the owner publishes transitions taken with TakeChanges.
func (c *Controller) Changes() *events.Emitter[State] { return c.changes }

// TakeChanges returns and forgets the transitions made since the last call.
func (c *Controller) TakeChanges() []State {
	q := c.queued
	c.queued = nil
	return q
}

func (c *Controller) transition(s State) {
	if s == c.state {
		return
	}
	c.state = s
	c.queued = append(c.queued, s)
}

// SelectTab switches between the existing-requests list and the category picker.
// Leaving a form this way tears it down.
func (c *Controller) SelectTab(tab Tab) {
	if c.form != nil || c.state.Mode == ModeChatPassthrough {
		c.teardown()
	}
	if tab == TabNew {
		c.transition(State{Mode: ModeBrowsingNew})
		return
	}
	c.transition(State{Mode: ModeBrowsingExisting})
}

// SelectCategory opens the form for a custom-form category or enters chat
// passthrough for any other. A previously open form is discarded.
func (c *Controller) SelectCategory(id string) (Form, error) {
	cat, ok := c.catalog.Category(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}

	var form Form
	if cat.IsCustomForm() {
		f, err := NewForm(cat)
		if err != nil {
			return nil, err
		}
		form = f
	}

	c.teardown()
	c.category = cat
	c.session.SelectCategory(cat.ID, cat.IsCustomForm())

	if form != nil {
		c.form = form
		c.chat.SetAllowedAttachments(FormAttachments())
		c.transition(State{Mode: ModeFormOverlay, CategoryID: cat.ID})
		return form, nil
	}
	c.transition(State{Mode: ModeChatPassthrough, CategoryID: cat.ID})
	return nil, nil
}

// DismissForm returns to browsing_existing, discarding the form and the
// selected category.
func (c *Controller) DismissForm() {
	c.teardown()
	c.transition(State{Mode: ModeBrowsingExisting})
}

func (c *Controller) teardown() {
	if c.form != nil {
		c.chat.SetAllowedAttachments(AllAttachments())
	}
	c.form = nil
	c.category = catalog.Category{}
	c.session.Reset()
}

// Intercepts reports whether outbound chat messages must be kept from the
// conversation because a form is shown.
func (c *Controller) Intercepts() bool {
	return c.state.Mode == ModeFormOverlay
}

// TagOutbound prepares the messages of one user action for sending. In chat
// passthrough the first message carries the category tag, unless the category
// is the default one.
func (c *Controller) TagOutbound(messages []string) []string {
	out := append([]string(nil), messages...)
	if c.state.Mode != ModeChatPassthrough || c.category.IsDefault() || len(out) == 0 {
		return out
	}
	out[0] = task.TitleFor(c.category.Name) + "\n" + out[0]
	return out
}
