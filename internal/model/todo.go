package model

import (
	"time"
)

const (
	StatusActive = "active"
	StatusDone   = "done"
)

const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// DefaultMainGoal is used until a user sets their own with /goal.
const DefaultMainGoal = "make money"

type Todo struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Priority    int        `json:"priority"`
	ProjectType string     `json:"project_type"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the todo has been completed.
func (t Todo) Done() bool {
	return t.Status == StatusDone
}

type UserProfile struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	MainGoal  string    `json:"main_goal"`
	CreatedAt time.Time `json:"created_at"`
}

type Stats struct {
	Active     int `json:"active"`
	Done7d     int `json:"done_7d"`
	Done30d    int `json:"done_30d"`
	Created7d  int `json:"created_7d"`
	Created30d int `json:"created_30d"`
}

var priorityLabels = map[int]string{
	PriorityHigh:   "High",
	PriorityMedium: "Medium",
	PriorityLow:    "Low",
}

var priorityAliases = map[string]int{
	"1":      PriorityHigh,
	"p1":     PriorityHigh,
	"high":   PriorityHigh,
	"urgent": PriorityHigh,
	"2":      PriorityMedium,
	"p2":     PriorityMedium,
	"medium": PriorityMedium,
	"med":    PriorityMedium,
	"3":      PriorityLow,
	"p3":     PriorityLow,
	"low":    PriorityLow,
}

// PriorityLabel returns High, Medium or Low. Unknown values read as Medium.
func PriorityLabel(p int) string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return "Medium"
}

// AgeDays returns whole days elapsed since created, never negative.
func AgeDays(created, now time.Time) int {
	if created.IsZero() {
		return 0
	}
	d := now.Sub(created)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// FormatDeadline renders a deadline as YYYY-MM-DD in UTC.
func FormatDeadline(deadline *time.Time) string {
	if deadline == nil {
		return "No deadline"
	}
	return deadline.UTC().Format(time.DateOnly)
}

// DefaultDeadline is one calendar month after now at 23:59:59 UTC. The day is
// clamped to the length of the target month, so Jan 31 becomes Feb 28 or 29.
func DefaultDeadline(now time.Time) time.Time {
	now = now.UTC()
	year, month := now.Year(), now.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	day := now.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
