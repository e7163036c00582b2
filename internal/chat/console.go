// Package chat provides the terminal chat surface the request screen is
// overlaid on.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/ui"
)

// ScratchConversation is the conversation shown before any task is opened.
const ScratchConversation = "new-request"

var (
	ErrAttachmentNotAllowed = errors.New("attachment type not allowed here")
	ErrEmptyMessage         = errors.New("message is empty")
)

// Role is who wrote a message.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
	RoleSystem   Role = "system"
)

// Message is one transcript line.
type Message struct {
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	Text           string    `json:"text"`
	Attachment     string    `json:"attachment,omitempty"`
	At             time.Time `json:"at"`
}

// Console renders conversations to a writer and keeps one draft per
// conversation.
type Console struct {
	mu          sync.Mutex
	out         io.Writer
	now         func() time.Time
	active      string
	drafts      map[string]string
	transcripts map[string][]Message
	allowed     []request.AttachmentType
	sent        *events.Emitter[Message]
}

var _ request.ChatSurface = (*Console)(nil)

func NewConsole(out io.Writer) *Console {
	return &Console{
		out:         out,
		now:         time.Now,
		active:      ScratchConversation,
		drafts:      make(map[string]string),
		transcripts: make(map[string][]Message),
		allowed:     request.AllAttachments(),
		sent:        events.NewEmitter[Message](),
	}
}

// Sent emits every message the user sends, after it is on the transcript.
func (c *Console) Sent() *events.Emitter[Message] { return c.sent }

// Active returns the id of the open conversation.
func (c *Console) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Transcript returns a copy of a conversation's messages.
func (c *Console) Transcript(conversationID string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcripts[conversationID])
}

// SendMessage appends text to the open conversation.
func (c *Console) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	msg := c.append(RoleUser, text, "")
	c.sent.Emit(msg)
	return nil
}

// Attach adds a file reference to the open conversation if its type is
// currently allowed.
func (c *Console) Attach(kind request.AttachmentType, name string) error {
	c.mu.Lock()
	ok := slices.Contains(c.allowed, kind)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAttachmentNotAllowed, kind)
	}
	msg := c.append(RoleUser, "", string(kind)+":"+name)
	c.sent.Emit(msg)
	return nil
}

// Notice writes a system line, e.g. an operator status update.
func (c *Console) Notice(text string) {
	c.append(RoleSystem, text, "")
}

func (c *Console) append(role Role, text, attachment string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := Message{
		ConversationID: c.active,
		Role:           role,
		Text:           text,
		Attachment:     attachment,
		At:             c.now(),
	}
	c.transcripts[c.active] = append(c.transcripts[c.active], msg)
	fmt.Fprintln(c.out, renderMessage(msg))
	return msg
}

func renderMessage(m Message) string {
	var who string
	switch m.Role {
	case RoleUser:
		who = ui.StyleUser.Render("you")
	case RoleOperator:
		who = ui.StyleOperator.Render("concierge")
	default:
		return ui.StyleSystem.Render("· " + m.Text)
	}
	body := m.Text
	if m.Attachment != "" {
		body = ui.StyleSubtle.Render("[" + m.Attachment + "]")
	}
	return fmt.Sprintf("%s %s %s", ui.StyleSubtle.Render(m.At.Format("15:04")), who, body)
}

// CurrentDraft returns the open conversation's unsent text.
func (c *Console) CurrentDraft() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[c.active]
	return d, ok && d != ""
}

// SetDraft replaces the open conversation's draft; nil clears it.
func (c *Console) SetDraft(draft *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if draft == nil || *draft == "" {
		delete(c.drafts, c.active)
		return
	}
	c.drafts[c.active] = *draft
}

// SetAllowedAttachments limits what Attach accepts.
func (c *Console) SetAllowedAttachments(types []request.AttachmentType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowed = slices.Clone(types)
}

// AllowedAttachments returns the current attachment policy.
func (c *Console) AllowedAttachments() []request.AttachmentType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.allowed)
}

// OpenConversation switches to the task's conversation and prints its header.
func (c *Console) OpenConversation(ctx context.Context, t task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID <= 0 {
		return fmt.Errorf("open conversation: invalid task id %d", t.ID)
	}
	id := t.ConversationID
	if id == "" {
		id = fmt.Sprintf("task-%d", t.ID)
	}

	c.mu.Lock()
	c.active = id
	c.mu.Unlock()

	fmt.Fprintln(c.out, ui.RenderSuccessPanel(fmt.Sprintf("Request #%d", t.ID), t.Title))
	return nil
}
