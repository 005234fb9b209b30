package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chris/todocoach/internal/model"
)

// UpsertUser records a chat user, refreshing their display names, and seeds
// the default chores on first sight.
func (d *DB) UpsertUser(ctx context.Context, userID int64, username, firstName string) (*model.UserProfile, error) {
	now := formatTime(d.clock())
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO users (user_id, username, first_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET username = excluded.username, first_name = excluded.first_name, updated_at = excluded.updated_at`,
		userID, username, firstName, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	if err := d.EnsureDefaultChores(ctx, userID); err != nil {
		return nil, err
	}
	return d.GetUserProfile(ctx, userID)
}

// EnsureUser creates a bare user row when missing, leaving existing names
// alone, and seeds the default chores.
func (d *DB) EnsureUser(ctx context.Context, userID int64) error {
	now := formatTime(d.clock())
	_, err := d.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO users (user_id, created_at, updated_at) VALUES (?, ?, ?)",
		userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensuring user: %w", err)
	}
	return d.EnsureDefaultChores(ctx, userID)
}

// GetUserProfile returns the stored profile. Unknown users get a profile
// with the default main goal rather than an error.
func (d *DB) GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	p := &model.UserProfile{UserID: userID}
	var createdAt string
	err := d.conn.QueryRowContext(ctx,
		"SELECT username, first_name, main_goal, created_at FROM users WHERE user_id = ?", userID,
	).Scan(&p.Username, &p.FirstName, &p.MainGoal, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		p.MainGoal = model.DefaultMainGoal
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user profile: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.MainGoal) == "" {
		p.MainGoal = model.DefaultMainGoal
	}
	return p, nil
}

// SetMainGoal stores the user's main goal, creating the user if needed.
func (d *DB) SetMainGoal(ctx context.Context, userID int64, goal string) error {
	now := formatTime(d.clock())
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO users (user_id, main_goal, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET main_goal = excluded.main_goal, updated_at = excluded.updated_at`,
		userID, strings.TrimSpace(goal), now, now,
	)
	if err != nil {
		return fmt.Errorf("setting main goal: %w", err)
	}
	return nil
}

// ListUserIDs returns every known user, oldest first.
func (d *DB) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT user_id FROM users ORDER BY created_at, user_id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
