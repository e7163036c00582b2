package request

import (
	"context"

	"github.com/josephgoksu/concierge/internal/task"
)

// Handoff moves the user from a confirmed form to the task's conversation.
type Handoff struct {
	chat       ChatSurface
	controller *Controller
}

// NewHandoff creates a handoff over the shared chat surface.
func NewHandoff(chat ChatSurface, controller *Controller) *Handoff {
	return &Handoff{chat: chat, controller: controller}
}

// Complete opens the conversation bound to t, moves the draft of the previous
// conversation onto it, then dismisses the form and shows the existing tasks.
// The form is dismissed even when the conversation cannot be opened, since the
// task already exists. The caller holds the orchestrator lock for the whole
// call, so observers only see the final state.
func (h *Handoff) Complete(ctx context.Context, t task.Task) error {
	draft, hasDraft := h.chat.CurrentDraft()
	h.chat.SetDraft(nil)

	err := h.chat.OpenConversation(ctx, t)
	if hasDraft {
		h.chat.SetDraft(&draft)
	}

	h.controller.DismissForm()
	h.controller.SelectTab(TabExisting)
	if err != nil {
		return &HandoffError{Task: t, Err: err}
	}
	return nil
}
