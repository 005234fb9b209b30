package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chris/todocoach/internal/model"
)

const reflectionColumns = "id, user_id, question_key, question, asked_for_date, asked_at, answer, answered_at, skipped, skip_note"

// Pending means asked for today, not answered and not skipped.
const pendingReflection = "user_id = ? AND asked_for_date = ? AND answer IS NULL AND skipped = 0"

// EnsureDailyReflection creates today's prompt for the question key. It
// reports false when the prompt already exists.
func (d *DB) EnsureDailyReflection(ctx context.Context, userID int64, key, question string, at time.Time) (bool, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO reflections (user_id, question_key, question, asked_for_date, asked_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, key, question, at.UTC().Format(time.DateOnly), formatTime(at),
	)
	return rowsAffected(res, err, "ensuring daily reflection")
}

// GetPendingReflection returns the oldest open prompt for today or ErrNotFound.
func (d *DB) GetPendingReflection(ctx context.Context, userID int64) (*model.Reflection, error) {
	var r model.Reflection
	var askedAt string
	var answer, answeredAt sql.NullString
	err := d.conn.QueryRowContext(ctx,
		"SELECT "+reflectionColumns+" FROM reflections WHERE "+pendingReflection+" ORDER BY asked_at, id LIMIT 1",
		userID, d.today(),
	).Scan(&r.ID, &r.UserID, &r.QuestionKey, &r.Question, &r.AskedForDate, &askedAt, &answer, &answeredAt, &r.Skipped, &r.SkipNote)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending reflection: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting pending reflection: %w", err)
	}
	if r.AskedAt, err = parseTime(askedAt); err != nil {
		return nil, err
	}
	if answer.Valid {
		r.Answer = &answer.String
	}
	if r.AnsweredAt, err = parseNullTime(answeredAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) CountPendingReflections(ctx context.Context, userID int64) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reflections WHERE "+pendingReflection, userID, d.today(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending reflections: %w", err)
	}
	return n, nil
}

// SavePendingReflectionAnswer answers the oldest open prompt. It reports
// false when nothing is pending or the answer is blank.
func (d *DB) SavePendingReflectionAnswer(ctx context.Context, userID int64, answer string) (bool, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false, nil
	}
	res, err := d.conn.ExecContext(ctx,
		`UPDATE reflections SET answer = ?, answered_at = ?
		WHERE id = (SELECT id FROM reflections WHERE `+pendingReflection+` ORDER BY asked_at, id LIMIT 1)`,
		answer, formatTime(d.clock()), userID, d.today(),
	)
	return rowsAffected(res, err, "saving reflection answer")
}

// PassPendingReflection skips the oldest open prompt with a note.
func (d *DB) PassPendingReflection(ctx context.Context, userID int64, note string) (bool, error) {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE reflections SET skipped = 1, skip_note = ?
		WHERE id = (SELECT id FROM reflections WHERE `+pendingReflection+` ORDER BY asked_at, id LIMIT 1)`,
		strings.TrimSpace(note), userID, d.today(),
	)
	return rowsAffected(res, err, "passing reflection")
}

// ListRecentReflectionAnswers returns answer texts, most recently answered first.
func (d *DB) ListRecentReflectionAnswers(ctx context.Context, userID int64, limit int) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT answer FROM reflections WHERE user_id = ? AND answer IS NOT NULL ORDER BY answered_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reflection answers: %w", err)
	}
	return scanStrings(rows)
}

func (d *DB) today() string {
	return d.clock().Format(time.DateOnly)
}
