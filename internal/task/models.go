// Package task defines the concierge request task as stored by the backend and
// returned by the task list feed.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a request task.
type Status string

const (
	StatusNew        Status = "new"         // Created, not yet picked up by an agent
	StatusInProgress Status = "in_progress" // Concierge is working on it
	StatusDone       Status = "done"        // Fulfilled
	StatusCancelled  Status = "cancelled"   // Withdrawn by the user or the concierge
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Payload is the category-specific body of a request. Its shape is opaque to
// the backend apart from the title key.
type Payload map[string]any

// PayloadTitleKey holds the task title inside a payload.
const PayloadTitleKey = "title"

// Title returns the payload's title, or "" when absent.
func (p Payload) Title() string {
	s, _ := p[PayloadTitleKey].(string)
	return s
}

// MaxTitleLen bounds Task.Title.
const MaxTitleLen = 200

// Task is one concierge request. Each task owns exactly one conversation.
type Task struct {
	ID             int64     `json:"id"`
	CategoryID     string    `json:"categoryId"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	ConversationID string    `json:"conversationId"`
	Payload        Payload   `json:"payload,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Validate checks if the task has all required fields and valid data.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.CategoryID) == "" {
		return fmt.Errorf("category required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title required")
	}
	if len(t.Title) > MaxTitleLen {
		return fmt.Errorf("title too long (max %d chars)", MaxTitleLen)
	}
	if t.Status != "" && !ValidStatus(t.Status) {
		return fmt.Errorf("unknown status %q", t.Status)
	}
	return nil
}

// Find returns the task with the given id from a loaded list.
func Find(tasks []Task, id int64) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// TitleFor builds the default task title for a category, e.g. "New request: Flights".
func TitleFor(categoryName string) string {
	return "New request: " + categoryName
}
