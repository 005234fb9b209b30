package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chris/todocoach/internal/model"
	"github.com/dustin/go-humanize"
)

const HelpText = "Commands:\n" +
	"/start - initialize profile and show overview\n" +
	"/help - show this help\n" +
	"/add - interactive add flow\n" +
	"/add <task> | <priority> | <deadline YYYY-MM-DD> - quick add\n" +
	"/list - show active tasks with Done/Delete buttons\n" +
	"/goal - show current main goal\n" +
	"/goal <text> - update main goal\n" +
	"/checkin - run daily-style coaching now\n" +
	"/review - run weekly-style coaching now\n" +
	"/improve - analyze your execution patterns and improvements\n" +
	"/reflect - ask today's reflection questions\n" +
	"/pass - skip today's pending reflection\n" +
	"/chores - view recurring weekend chores\n" +
	"/cancel - cancel the /add interactive flow\n\n" +
	"Priority: high/medium/low or p1/p2/p3 or 1/2/3.\n" +
	"Deadline: YYYY-MM-DD, or skip/none (defaults to +1 month).\n" +
	"Tip: send non-command text as accomplishment/blocker notes for smarter coaching."

// Commands lists the command menu shown by chat clients.
var Commands = []struct{ Name, Description string }{
	{"start", "Initialize profile and show overview"},
	{"help", "Show help"},
	{"add", "Add a task"},
	{"list", "Show active tasks"},
	{"goal", "Show or update your main goal"},
	{"checkin", "Run daily-style coaching now"},
	{"review", "Run weekly-style coaching now"},
	{"improve", "Analyze your execution patterns"},
	{"reflect", "Ask today's reflection questions"},
	{"pass", "Skip today's pending reflection"},
	{"chores", "View recurring weekend chores"},
	{"cancel", "Cancel adding a task"},
}

// Callback actions carried in button data as "<action>:<id>".
const (
	ActionDone             = "done"
	ActionDelete           = "delete"
	ActionChoreDone        = "chore_done"
	ActionChoreNotDone     = "chore_not_done"
	ActionChorePassWeekend = "chore_pass_weekend"
)

func callbackData(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}

func TodoButtons(id int64) [][]Button {
	return [][]Button{{
		{Label: "Done", Data: callbackData(ActionDone, id)},
		{Label: "Delete", Data: callbackData(ActionDelete, id)},
	}}
}

func ChoreDoneButtons(id int64) [][]Button {
	return [][]Button{{{Label: "Done", Data: callbackData(ActionChoreDone, id)}}}
}

// ChoreActionButtons are attached to scheduled weekend chore reminders.
func ChoreActionButtons(id int64) [][]Button {
	return [][]Button{
		{
			{Label: "Done", Data: callbackData(ActionChoreDone, id)},
			{Label: "Not done", Data: callbackData(ActionChoreNotDone, id)},
		},
		{{Label: "Pass weekend", Data: callbackData(ActionChorePassWeekend, id)}},
	}
}

// ReflectionPrompt is the message that asks a daily reflection question.
func ReflectionPrompt(question string) string {
	return "Daily Reflection (5 min)\n\n" +
		question + "\n\n" +
		"Reply with your answer. I will store it for future analysis.\n" +
		"If you're not motivated today, send /pass."
}

// ChoreReminder is the per-chore message of a scheduled reminder.
func ChoreReminder(c model.Chore) Reply {
	return Reply{
		Text:    fmt.Sprintf("%s\nDue since: %s\n\nDone today?", c.Name, FormatDate(c.NextDueDate)),
		Buttons: ChoreActionButtons(c.ID),
	}
}

// FormatDate renders a UTC date, or n/a for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format(time.DateOnly)
}

func todoMessage(t model.Todo, index int, now time.Time) string {
	added := FormatDate(t.CreatedAt)
	if !t.CreatedAt.IsZero() {
		added += " (" + humanize.RelTime(t.CreatedAt, now, "ago", "from now") + ")"
	}
	return fmt.Sprintf("[%d] %s\nType: %s\nPriority: %s\nDeadline: %s\nAdded: %s\nTask ID: %d",
		index, t.Title, t.ProjectType, model.PriorityLabel(t.Priority), model.FormatDeadline(t.Deadline), added, t.ID)
}

func addedMessage(t *model.Todo) string {
	return fmt.Sprintf("Added: %s | priority %s | deadline %s",
		t.Title, model.PriorityLabel(t.Priority), model.FormatDeadline(t.Deadline))
}

func choreSchedule(chores []model.Chore) string {
	lines := []string{"No overdue chores right now. Upcoming schedule:"}
	for _, c := range chores {
		lines = append(lines, fmt.Sprintf("- %s: every %d day(s), next due %s", c.Name, c.IntervalDays, FormatDate(c.NextDueDate)))
	}
	return strings.Join(lines, "\n")
}

func pendingSuffix(remaining int) string {
	return fmt.Sprintf("\n\nPending reflections: %d", remaining)
}
