package server

import (
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/task"
)

// CreateTaskRequest is the payload for POST /api/tasks
type CreateTaskRequest struct {
	CategoryID string       `json:"categoryId" validate:"required"`
	Title      string       `json:"title" validate:"omitempty,max=200"`
	Payload    task.Payload `json:"payload"`
}

// CreateTaskResponse is the response for POST /api/tasks
type CreateTaskResponse struct {
	TaskID int64 `json:"taskId"`
}

// TaskListResponse is the response for GET /api/tasks
type TaskListResponse struct {
	Tasks []task.Task `json:"tasks"`
}

// CategoriesResponse is the response for GET /api/categories
type CategoriesResponse struct {
	Primary   []catalog.Category `json:"primary"`
	Secondary []catalog.Category `json:"secondary"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
