package chat

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return c, &buf
}

func TestConsole_SendMessage(t *testing.T) {
	c, buf := newConsole()

	var got []Message
	c.Sent().Handle(func(m Message) { got = append(got, m) })

	require.NoError(t, c.SendMessage(context.Background(), "New request: Restaurants\ntable for two"))
	assert.ErrorIs(t, c.SendMessage(context.Background(), "  "), ErrEmptyMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.SendMessage(ctx, "late"), context.Canceled)

	require.Len(t, got, 1)
	assert.Equal(t, ScratchConversation, got[0].ConversationID)
	assert.Len(t, c.Transcript(ScratchConversation), 1)
	assert.Contains(t, buf.String(), "table for two")
	assert.Contains(t, buf.String(), "09:30")
}

func TestConsole_DraftsArePerConversation(t *testing.T) {
	c, _ := newConsole()

	_, ok := c.CurrentDraft()
	assert.False(t, ok)

	draft := "also a car seat"
	c.SetDraft(&draft)
	got, ok := c.CurrentDraft()
	require.True(t, ok)
	assert.Equal(t, draft, got)

	require.NoError(t, c.OpenConversation(context.Background(), task.Task{ID: 3, ConversationID: "conv-3", Title: "t"}))
	_, ok = c.CurrentDraft()
	assert.False(t, ok, "new conversation starts without a draft")

	c.SetDraft(nil)
	empty := ""
	c.SetDraft(&empty)
	_, ok = c.CurrentDraft()
	assert.False(t, ok)
}

func TestConsole_Attachments(t *testing.T) {
	c, _ := newConsole()

	require.NoError(t, c.Attach(request.AttachLocation, "pin"))

	c.SetAllowedAttachments(request.FormAttachments())
	assert.ErrorIs(t, c.Attach(request.AttachVideo, "clip.mp4"), ErrAttachmentNotAllowed)
	require.NoError(t, c.Attach(request.AttachDocument, "passport.pdf"))
	assert.Equal(t, request.FormAttachments(), c.AllowedAttachments())

	tr := c.Transcript(ScratchConversation)
	require.Len(t, tr, 2)
	assert.Equal(t, "document:passport.pdf", tr[1].Attachment)
}

func TestConsole_OpenConversation(t *testing.T) {
	c, buf := newConsole()

	assert.Error(t, c.OpenConversation(context.Background(), task.Task{}))
	assert.Equal(t, ScratchConversation, c.Active())

	require.NoError(t, c.OpenConversation(context.Background(), task.Task{ID: 9, Title: "New request: Hotels"}))
	assert.Equal(t, "task-9", c.Active())
	assert.Contains(t, buf.String(), "Request #9")

	c.Notice("operator joined")
	tr := c.Transcript("task-9")
	require.Len(t, tr, 1)
	assert.Equal(t, RoleSystem, tr[0].Role)
}
