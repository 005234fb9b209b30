package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"1", PriorityHigh, true},
		{"P1", PriorityHigh, true},
		{" urgent ", PriorityHigh, true},
		{"med", PriorityMedium, true},
		{"medium", PriorityMedium, true},
		{"low", PriorityLow, true},
		{"p3", PriorityLow, true},
		{"someday", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePriority(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorityLabel(t *testing.T) {
	assert.Equal(t, "High", PriorityLabel(1))
	assert.Equal(t, "Medium", PriorityLabel(2))
	assert.Equal(t, "Low", PriorityLabel(3))
	assert.Equal(t, "Medium", PriorityLabel(9))
}

func TestParseDeadline(t *testing.T) {
	got, err := ParseDeadline("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), *got)

	for _, raw := range []string{"", "skip", "NONE", "-"} {
		got, err := ParseDeadline(raw)
		assert.NoError(t, err)
		assert.Nil(t, got, raw)
	}

	_, err = ParseDeadline("tomorrow")
	assert.ErrorIs(t, err, ErrInvalidDeadline)
}

func TestParseAddPayload(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	tests := []struct {
		Desc     string
		raw      string
		title    string
		priority int
		deadline *time.Time
		err      error
	}{
		{Desc: "pipe form", raw: "Send invoice | high | 2026-03-01", title: "Send invoice", priority: 1, deadline: &deadline},
		{Desc: "pipe form title only", raw: "Send invoice |", title: "Send invoice", priority: 2},
		{Desc: "pipe form bad priority", raw: "Send invoice | soon", err: ErrInvalidPriority},
		{Desc: "pipe form bad date", raw: "Send invoice | low | 03/01", err: ErrInvalidDeadline},
		{Desc: "pipe form no title", raw: " | low", err: ErrTitleRequired},
		{Desc: "free form", raw: "call   client p1 2026-03-01", title: "call client", priority: 1, deadline: &deadline},
		{Desc: "free form defaults", raw: "water the garden", title: "water the garden", priority: 2},
		{Desc: "empty", raw: "   ", err: ErrEmptyTask},
		{Desc: "only tokens", raw: "high 2026-03-01", err: ErrTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.Desc, func(t *testing.T) {
			got, err := ParseAddPayload(tt.raw)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, tt.deadline, got.Deadline)
		})
	}
}

func TestDefaultDeadline(t *testing.T) {
	tests := []struct {
		Desc string
		now  time.Time
		want time.Time
	}{
		{"mid month", time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), time.Date(2026, 11, 16, 23, 59, 59, 0, time.UTC)},
		{"clamped to february", time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)},
		{"leap year", time.Date(2024, 1, 30, 8, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)},
		{"year rollover", time.Date(2025, 12, 15, 8, 0, 0, 0, time.UTC), time.Date(2026, 1, 15, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.Desc, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultDeadline(tt.now))
		})
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AgeDays(time.Time{}, now))
	assert.Equal(t, 0, AgeDays(now.Add(time.Hour), now))
	assert.Equal(t, 2, AgeDays(now.Add(-71*time.Hour), now))
	assert.Equal(t, 3, AgeDays(now.Add(-72*time.Hour), now))
}

func TestFormatDeadline(t *testing.T) {
	assert.Equal(t, "No deadline", FormatDeadline(nil))
	d := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2026-03-01", FormatDeadline(&d))
}

func TestNextWeekdayOnOrAfter(t *testing.T) {
	// 2026-10-16 is a Friday.
	assert.Equal(t, date(2026, 10, 17), NextWeekdayOnOrAfter(time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), Saturday))
	assert.Equal(t, date(2026, 10, 17), NextWeekdayOnOrAfter(time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), Saturday))
	assert.Equal(t, date(2026, 10, 24), NextWeekdayOnOrAfter(date(2026, 10, 18), Saturday))
	assert.Equal(t, date(2026, 10, 19), NextWeekdayOnOrAfter(date(2026, 10, 18), Monday))
}

func TestIsWeekend(t *testing.T) {
	assert.False(t, IsWeekend(date(2026, 10, 16)))
	assert.True(t, IsWeekend(date(2026, 10, 17)))
	assert.True(t, IsWeekend(date(2026, 10, 18)))
}

func TestCollapseText(t *testing.T) {
	assert.Equal(t, "a b c", CollapseText("  a\n\tb   c ", 100))
	assert.Equal(t, "héll", CollapseText("héllo", 4))
}
