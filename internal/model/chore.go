package model

import "time"

// Weekday numbering used by chores: 0 is Monday, 6 is Sunday.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

type Chore struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	Name             string     `json:"name"`
	IntervalDays     int        `json:"interval_days"`
	PreferredWeekday int        `json:"preferred_weekday"`
	NextDueDate      time.Time  `json:"next_due_date"`
	LastCompletedAt  *time.Time `json:"last_completed_at,omitempty"`
}

type ChoreTemplate struct {
	Name             string
	IntervalDays     int
	PreferredWeekday int
}

// DefaultChores are seeded for every new user.
var DefaultChores = []ChoreTemplate{
	{Name: "Clean bedroom and bathroom", IntervalDays: 30, PreferredWeekday: Saturday},
	{Name: "Clean sheets", IntervalDays: 21, PreferredWeekday: Saturday},
	{Name: "Water plants", IntervalDays: 7, PreferredWeekday: Saturday},
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MondayIndex converts Go's Sunday-first weekday to the Monday-first index.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// NextWeekdayOnOrAfter returns the start of the first day on or after base
// that falls on weekday (0 Monday .. 6 Sunday).
func NextWeekdayOnOrAfter(base time.Time, weekday int) time.Time {
	day := StartOfDay(base)
	delta := (weekday - MondayIndex(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, delta)
}

// IsWeekend reports whether t falls on Saturday or Sunday in UTC.
func IsWeekend(t time.Time) bool {
	return MondayIndex(t.UTC().Weekday()) >= Saturday
}
