package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chris/todocoach/internal/model"
)

const todoColumns = "id, user_id, title, priority, project_type, deadline, status, created_at, completed_at"

// Active ordering: priority, then deadline with undated last, then age.
const todoOrder = " ORDER BY priority, deadline IS NULL, deadline, created_at, id"

// AddTodo stores a new active todo. A missing deadline defaults to one month
// out, and a missing priority to medium.
func (d *DB) AddTodo(ctx context.Context, t model.Todo) (*model.Todo, error) {
	now := d.clock()
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, model.ErrTitleRequired
	}
	if t.Priority == 0 {
		t.Priority = model.PriorityMedium
	}
	if t.ProjectType == "" {
		t.ProjectType = "general"
	}
	if t.Deadline == nil {
		dl := model.DefaultDeadline(now)
		t.Deadline = &dl
	}
	t.Status = model.StatusActive
	t.CreatedAt = now.Truncate(time.Second)
	t.CompletedAt = nil

	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO todos (user_id, title, priority, project_type, deadline, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Priority, t.ProjectType, nullTime(t.Deadline), t.Status, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("adding todo: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("adding todo: %w", err)
	}
	return &t, nil
}

// GetTodo returns one of the user's todos or ErrNotFound.
func (d *DB) GetTodo(ctx context.Context, userID, id int64) (*model.Todo, error) {
	todos, err := d.scanTodos(ctx, "SELECT "+todoColumns+" FROM todos WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return nil, err
	}
	if len(todos) == 0 {
		return nil, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return &todos[0], nil
}

func (d *DB) ListActiveTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error) {
	return d.scanTodos(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = ? AND status = 'active'"+todoOrder+" LIMIT ?",
		userID, limit,
	)
}

// ListStaleTodos returns active todos created at least staleDays ago.
func (d *DB) ListStaleTodos(ctx context.Context, userID int64, staleDays, limit int) ([]model.Todo, error) {
	threshold := d.clock().AddDate(0, 0, -staleDays)
	return d.scanTodos(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = ? AND status = 'active' AND created_at <= ?"+todoOrder+" LIMIT ?",
		userID, formatTime(threshold), limit,
	)
}

// ListOverdueTodos returns active todos whose deadline has passed.
func (d *DB) ListOverdueTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error) {
	return d.scanTodos(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = ? AND status = 'active' AND deadline IS NOT NULL AND deadline < ?"+todoOrder+" LIMIT ?",
		userID, formatTime(d.clock()), limit,
	)
}

// ListRecentCompletedTodos returns todos finished in the last days, newest first.
func (d *DB) ListRecentCompletedTodos(ctx context.Context, userID int64, days, limit int) ([]model.Todo, error) {
	since := d.clock().AddDate(0, 0, -days)
	return d.scanTodos(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = ? AND status = 'done' AND completed_at >= ? ORDER BY completed_at DESC, id DESC LIMIT ?",
		userID, formatTime(since), limit,
	)
}

// MarkTodoDone completes an active todo. Done todos are never reopened, so
// it reports false for those as well as for unknown ids.
func (d *DB) MarkTodoDone(ctx context.Context, userID, id int64) (bool, error) {
	now := formatTime(d.clock())
	res, err := d.conn.ExecContext(ctx,
		"UPDATE todos SET status = 'done', completed_at = ?, updated_at = ? WHERE user_id = ? AND id = ? AND status = 'active'",
		now, now, userID, id,
	)
	return rowsAffected(res, err, "marking todo done")
}

func (d *DB) DeleteTodo(ctx context.Context, userID, id int64) (bool, error) {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM todos WHERE user_id = ? AND id = ?", userID, id)
	return rowsAffected(res, err, "deleting todo")
}

// GetStats counts active todos and recent activity.
func (d *DB) GetStats(ctx context.Context, userID int64) (model.Stats, error) {
	now := d.clock()
	last7 := formatTime(now.AddDate(0, 0, -7))
	last30 := formatTime(now.AddDate(0, 0, -30))

	var s model.Stats
	err := d.conn.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(status = 'active'), 0),
			COALESCE(SUM(status = 'done' AND completed_at >= ?), 0),
			COALESCE(SUM(status = 'done' AND completed_at >= ?), 0),
			COALESCE(SUM(created_at >= ?), 0),
			COALESCE(SUM(created_at >= ?), 0)
		FROM todos WHERE user_id = ?`,
		last7, last30, last7, last30, userID,
	).Scan(&s.Active, &s.Done7d, &s.Done30d, &s.Created7d, &s.Created30d)
	if err != nil {
		return s, fmt.Errorf("getting stats: %w", err)
	}
	return s, nil
}

func (d *DB) scanTodos(ctx context.Context, query string, args ...any) ([]model.Todo, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()
	var todos []model.Todo
	for rows.Next() {
		var t model.Todo
		var deadline, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Priority, &t.ProjectType, &deadline, &t.Status, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.Deadline, err = parseNullTime(deadline); err != nil {
			return nil, err
		}
		if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}
