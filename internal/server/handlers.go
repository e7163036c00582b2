package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/storage"
	"github.com/josephgoksu/concierge/internal/task"
)

// handleHealth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// handleCategories returns both picker rows with their categories resolved.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	primary, secondary := s.catalog.Rows()
	writeAPIJSON(w, http.StatusOK, CategoriesResponse{
		Primary:   s.resolveRow(primary),
		Secondary: s.resolveRow(secondary),
	})
}

func (s *Server) resolveRow(ids []string) []catalog.Category {
	out := make([]catalog.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.catalog.Category(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// handleListTasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		s.logger.Error("list tasks", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeAPIJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// handleGetTask
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	t, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeAPIError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		s.logger.Error("get task", "id", id, "error", err)
		writeAPIError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	writeAPIJSON(w, http.StatusOK, t)
}

// handleCreateTask
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		resp := ErrorResponse{Error: "validation failed"}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields = append(resp.Fields, fe.Field())
			}
		}
		writeAPIJSON(w, http.StatusBadRequest, resp)
		return
	}
	cat, ok := s.catalog.Category(req.CategoryID)
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "unknown category "+req.CategoryID)
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = task.Payload{}
	}
	switch {
	case req.Title != "":
		payload[task.PayloadTitleKey] = req.Title
	case payload.Title() == "":
		payload[task.PayloadTitleKey] = task.TitleFor(cat.Name)
	}

	id, err := s.store.CreateTask(r.Context(), cat.ID, payload)
	if err != nil {
		s.logger.Error("create task", "category", cat.ID, "error", err)
		writeAPIError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	s.logger.Info("task created", "id", id, "category", cat.ID)
	writeAPIJSON(w, http.StatusCreated, CreateTaskResponse{TaskID: id})
}

func writeAPIJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, ErrorResponse{Error: msg})
}
