package request

import (
	"context"

	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/events"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/taskfeed"
)

// TaskCreator is the task creation endpoint.
type TaskCreator interface {
	CreateTask(ctx context.Context, categoryID string, payload task.Payload) (int64, error)
}

// TaskFeed is the task list. RequestRefresh returns immediately; the result
// arrives on Loaded, as do refreshes triggered by anyone else.
type TaskFeed interface {
	RequestRefresh(ctx context.Context)
	Loaded() *events.Emitter[taskfeed.Loaded]
}

// AttachmentType is a kind of file the chat surface lets the user attach.
type AttachmentType string

const (
	AttachPhoto    AttachmentType = "photo"
	AttachVideo    AttachmentType = "video"
	AttachDocument AttachmentType = "document"
	AttachLocation AttachmentType = "location"
)

// AllAttachments is the unrestricted set.
func AllAttachments() []AttachmentType {
	return []AttachmentType{AttachPhoto, AttachVideo, AttachDocument, AttachLocation}
}

// FormAttachments is the set allowed while a custom form is shown.
func FormAttachments() []AttachmentType {
	return []AttachmentType{AttachPhoto, AttachDocument}
}

// ChatSurface is the single chat view that stays alive under every mode.
type ChatSurface interface {
	SendMessage(ctx context.Context, text string) error
	CurrentDraft() (string, bool)
	// SetDraft replaces the active conversation's draft; nil clears it.
	SetDraft(draft *string)
	SetAllowedAttachments(types []AttachmentType)
	OpenConversation(ctx context.Context, t task.Task) error
}

// Catalog is the read-only category lookup.
type Catalog interface {
	Category(id string) (catalog.Category, bool)
	Rows() (primary, secondary []string)
}
