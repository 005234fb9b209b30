package db

import (
	"context"
	"fmt"

	"github.com/chris/todocoach/internal/model"
)

// AddJournalEntry stores free text with whitespace collapsed and length
// capped. Blank text is ignored.
func (d *DB) AddJournalEntry(ctx context.Context, userID int64, text, source string) error {
	text = model.CollapseText(text, model.MaxJournalLength)
	if text == "" {
		return nil
	}
	if source == "" {
		source = model.SourceChat
	}
	_, err := d.conn.ExecContext(ctx,
		"INSERT INTO journal_entries (user_id, text, source, created_at) VALUES (?, ?, ?, ?)",
		userID, text, source, formatTime(d.clock()),
	)
	if err != nil {
		return fmt.Errorf("adding journal entry: %w", err)
	}
	return nil
}

// ListRecentNotes returns journal texts of any source, newest first.
func (d *DB) ListRecentNotes(ctx context.Context, userID int64, limit int) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT text FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return scanStrings(rows)
}
