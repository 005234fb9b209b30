package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chris/todocoach/internal/model"
)

const choreColumns = "id, user_id, name, interval_days, preferred_weekday, next_due_date, last_completed_at"

// EnsureDefaultChores seeds model.DefaultChores for the user. Existing chores
// with the same name are left untouched.
func (d *DB) EnsureDefaultChores(ctx context.Context, userID int64) error {
	now := d.clock()
	for _, c := range model.DefaultChores {
		firstDue := model.NextWeekdayOnOrAfter(now, c.PreferredWeekday)
		_, err := d.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO chores (user_id, name, interval_days, preferred_weekday, next_due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, c.Name, c.IntervalDays, c.PreferredWeekday, formatTime(firstDue), formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("seeding chore %q: %w", c.Name, err)
		}
	}
	return nil
}

func (d *DB) ListChores(ctx context.Context, userID int64, limit int) ([]model.Chore, error) {
	return d.scanChores(ctx,
		"SELECT "+choreColumns+" FROM chores WHERE user_id = ? ORDER BY next_due_date, name LIMIT ?",
		userID, limit,
	)
}

// ListDueChores returns chores due on or before the given day.
func (d *DB) ListDueChores(ctx context.Context, userID int64, day time.Time, limit int) ([]model.Chore, error) {
	endOfDay := model.StartOfDay(day).Add(24*time.Hour - time.Second)
	return d.scanChores(ctx,
		"SELECT "+choreColumns+" FROM chores WHERE user_id = ? AND next_due_date <= ? ORDER BY next_due_date, interval_days LIMIT ?",
		userID, formatTime(endOfDay), limit,
	)
}

func (d *DB) GetChore(ctx context.Context, userID, id int64) (*model.Chore, error) {
	chores, err := d.scanChores(ctx, "SELECT "+choreColumns+" FROM chores WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return nil, err
	}
	if len(chores) == 0 {
		return nil, fmt.Errorf("chore %d: %w", id, ErrNotFound)
	}
	return &chores[0], nil
}

// MarkChoreDone records a completion at the given time and moves the next
// due date to the preferred weekday on or after doneAt + interval.
func (d *DB) MarkChoreDone(ctx context.Context, userID, id int64, doneAt time.Time) (*model.Chore, error) {
	c, err := d.GetChore(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	base := model.StartOfDay(doneAt).AddDate(0, 0, c.IntervalDays)
	next := model.NextWeekdayOnOrAfter(base, c.PreferredWeekday)
	_, err = d.conn.ExecContext(ctx,
		"UPDATE chores SET last_completed_at = ?, next_due_date = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		formatTime(doneAt), formatTime(next), formatTime(d.clock()), userID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("marking chore done: %w", err)
	}
	return d.GetChore(ctx, userID, id)
}

// PassChoreWeekend skips the chore for the current weekend by moving it to
// the next preferred weekday after the given day.
func (d *DB) PassChoreWeekend(ctx context.Context, userID, id int64, at time.Time) (*model.Chore, error) {
	c, err := d.GetChore(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := model.NextWeekdayOnOrAfter(model.StartOfDay(at).AddDate(0, 0, 1), c.PreferredWeekday)
	_, err = d.conn.ExecContext(ctx,
		"UPDATE chores SET next_due_date = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		formatTime(next), formatTime(d.clock()), userID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("passing chore: %w", err)
	}
	return d.GetChore(ctx, userID, id)
}

func (d *DB) scanChores(ctx context.Context, query string, args ...any) ([]model.Chore, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chores: %w", err)
	}
	defer rows.Close()
	var chores []model.Chore
	for rows.Next() {
		var c model.Chore
		var nextDue string
		var lastDone sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IntervalDays, &c.PreferredWeekday, &nextDue, &lastDone); err != nil {
			return nil, fmt.Errorf("scanning chore: %w", err)
		}
		if c.NextDueDate, err = parseTime(nextDue); err != nil {
			return nil, err
		}
		if c.LastCompletedAt, err = parseNullTime(lastDone); err != nil {
			return nil, err
		}
		chores = append(chores, c)
	}
	return chores, rows.Err()
}
