package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/josephgoksu/concierge/internal/task"
)

const taskColumns = `id, category_id, title, status, conversation_id, payload, created_at`

// timeLayout sorts lexically, which the visible_at comparison relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Insert stores t and assigns its id, conversation and timestamps.
func (s *SQLiteStore) Insert(ctx context.Context, t *task.Task) error {
	if t.Status == "" {
		t.Status = task.StatusNew
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	if t.ConversationID == "" {
		t.ConversationID = "conv-" + uuid.New().String()
	}
	now := s.now()
	t.CreatedAt = now.UTC()

	payload := t.Payload
	if payload == nil {
		payload = task.Payload{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (category_id, title, status, conversation_id, payload, created_at, visible_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.CategoryID, t.Title, string(t.Status), t.ConversationID, string(payloadJSON),
		formatTime(now), formatTime(now.Add(s.lag)))
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read task id: %w", err)
	}
	t.ID = id
	return nil
}

// CreateTask creates a task for categoryID. The title comes from the payload,
// falling back to the category id.
func (s *SQLiteStore) CreateTask(ctx context.Context, categoryID string, payload task.Payload) (int64, error) {
	title := payload.Title()
	if title == "" {
		title = task.TitleFor(categoryID)
	}
	t := &task.Task{CategoryID: categoryID, Title: title, Payload: payload}
	if err := s.Insert(ctx, t); err != nil {
		return 0, err
	}
	return t.ID, nil
}

// ListTasks returns visible tasks, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE visible_at <= ? ORDER BY id DESC`,
		formatTime(s.now()))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask loads one task regardless of the listing lag.
func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return t, err
}

// UpdateStatus moves a task to a new status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status task.Status) error {
	if !task.ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (task.Task, error) {
	var (
		t         task.Task
		status    string
		payload   string
		createdAt string
	)
	if err := r.Scan(&t.ID, &t.CategoryID, &t.Title, &status, &t.ConversationID, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, err
		}
		return task.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.Status = task.Status(status)
	if payload != "" && payload != "{}" {
		if err := json.Unmarshal([]byte(payload), &t.Payload); err != nil {
			return task.Task{}, fmt.Errorf("decode payload of task %d: %w", t.ID, err)
		}
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return task.Task{}, fmt.Errorf("parse created_at of task %d: %w", t.ID, err)
	}
	t.CreatedAt = created
	return t, nil
}
