package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/chris/todocoach/internal/model"
)

const CoachSystemPrompt = `You are a concise, practical accountability coach.

Ground your advice in:
1) Getting Things Done (David Allen):
- Convert vague tasks into concrete next physical actions.
- Separate projects from next actions.
- Encourage regular review.

2) The 7 Habits of Highly Effective People (Stephen Covey):
- Keep priorities aligned to meaningful outcomes.
- Distinguish urgent vs important.
- Ask whether work moves the main goal forward.

3) Atomic Habits (James Clear):
- Suggest small, low-friction starts.
- Use implementation intentions ("When X, I will do Y").
- Reinforce consistency and momentum without hype.

Rules:
- Be direct and useful.
- User's main goal is often making money; prioritize suggestions that improve earning potential.
- If tasks are stale, suggest how to split them into smaller steps.
- If priorities are misaligned with the main goal, call this out clearly and propose a reorder.
- Provide realistic "money move" ideas based on recent activities.
- Never be generic if context is available.
`

// CheckinSections are the headings a check-in reply must use, in order.
var CheckinSections = []string{
	"Today Focus",
	"Split This",
	"Priority Realignment",
	"Money Move",
	"Check-in Question",
	"Process Improvement",
}

// ImprovementSections are the headings an improvement reply must use, in order.
var ImprovementSections = []string{
	"How You Get Things Done",
	"Time-To-Done Pattern",
	"Willingness and Friction",
	"Project-Type Fit",
	"Conflicts",
	"What To Improve",
	"AI Improvements",
	"Next Experiment",
}

const plainTextRules = `- Formatting for Telegram:
  - plain text only
  - do not use markdown markers like ###, **, __, * or backticks
  - use only one-level bullets that start with "- "
  - no nested bullets
`

const checkinRequirements = `Requirements:
- "Today Focus": max 3 bullets.
- "Split This": pick up to 2 stale tasks and break each into concrete next actions.
- "Priority Realignment": explicitly say what to move up/down based on main goal.
- "Money Move": one practical idea tied to recent tasks/notes.
- "Check-in Question": ask one short question requesting accomplishment update.
- "Process Improvement": give 2 specific adjustments based on how this user actually executes.
`

const improvementRequirements = `Requirements:
- Be concrete and diagnostic, not generic.
- In "What To Improve", provide exactly 5 actions.
- In "AI Improvements", provide exactly 3 ways the bot can help better.
- "Next Experiment" must be a 7-day experiment with simple tracking.
`

const (
	checkinNoteLimit           = 10
	checkinReflectionLimit     = 6
	improvementNoteLimit       = 12
	improvementReflectionLimit = 10
	maxBreakdownLines          = 6
)

// CheckinInput is everything a daily check-in or weekly review prompt shows.
type CheckinInput struct {
	Now         time.Time
	Weekly      bool
	MainGoal    string
	Stats       model.Stats
	Active      []model.Todo
	Overdue     []model.Todo
	Stale       []model.Todo
	StaleDays   int
	Notes       []string
	Reflections []string
	Profile     Profile
}

// ImprovementInput feeds the deeper execution analysis prompt.
type ImprovementInput struct {
	Now         time.Time
	MainGoal    string
	Active      []model.Todo
	Notes       []string
	Reflections []string
	Profile     Profile
}

// Cadence names the check-in frequency.
func Cadence(weekly bool) string {
	if weekly {
		return "weekly review"
	}
	return "daily check-in"
}

// ComposeCheckinPrompt renders the user prompt for a check-in.
func ComposeCheckinPrompt(in CheckinInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", formatNow(in.Now))
	fmt.Fprintf(&b, "Cadence: %s\n", Cadence(in.Weekly))
	fmt.Fprintf(&b, "Main goal: %s\n\n", in.MainGoal)

	b.WriteString("Stats:\n")
	fmt.Fprintf(&b, "- active=%d\n", in.Stats.Active)
	fmt.Fprintf(&b, "- done_last_7_days=%d\n", in.Stats.Done7d)
	fmt.Fprintf(&b, "- done_last_30_days=%d\n", in.Stats.Done30d)
	fmt.Fprintf(&b, "- created_last_7_days=%d\n", in.Stats.Created7d)
	fmt.Fprintf(&b, "- created_last_30_days=%d\n\n", in.Stats.Created30d)

	fmt.Fprintf(&b, "Active todos:\n%s\n\n", FormatTasks(in.Active, in.Now))
	fmt.Fprintf(&b, "Overdue todos:\n%s\n\n", FormatTasks(in.Overdue, in.Now))
	fmt.Fprintf(&b, "Stale todos (age >= %d days):\n%s\n\n", in.StaleDays, FormatTasks(in.Stale, in.Now))
	fmt.Fprintf(&b, "Recent journal notes:\n%s\n\n", formatBullets(in.Notes, checkinNoteLimit))
	fmt.Fprintf(&b, "Recent \"Who am I?\" reflections:\n%s\n\n", formatBullets(in.Reflections, checkinReflectionLimit))
	fmt.Fprintf(&b, "Execution learning profile:\n%s\n\n", RenderProfile(in.Profile))

	writeSections(&b, CheckinSections)
	b.WriteString("\n")
	b.WriteString(checkinRequirements)
	b.WriteString(plainTextRules)
	return b.String()
}

// ComposeImprovementPrompt renders the user prompt for /improve.
func ComposeImprovementPrompt(in ImprovementInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", formatNow(in.Now))
	fmt.Fprintf(&b, "Main goal: %s\n\n", in.MainGoal)
	fmt.Fprintf(&b, "Active todos:\n%s\n\n", FormatTasks(in.Active, in.Now))
	fmt.Fprintf(&b, "Recent journal notes:\n%s\n\n", formatBullets(in.Notes, improvementNoteLimit))
	fmt.Fprintf(&b, "Recent \"Who am I?\" reflections:\n%s\n\n", formatBullets(in.Reflections, improvementReflectionLimit))
	fmt.Fprintf(&b, "Execution learning profile:\n%s\n\n", RenderProfile(in.Profile))

	writeSections(&b, ImprovementSections)
	b.WriteString("\n")
	b.WriteString(improvementRequirements)
	b.WriteString(plainTextRules)
	return b.String()
}

// FormatTasks renders one line per todo, or "- (none)".
func FormatTasks(todos []model.Todo, now time.Time) string {
	if len(todos) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(todos))
	for i, t := range todos {
		lines[i] = fmt.Sprintf("- [%d] %s | priority=%s | deadline=%s | age_days=%d",
			i+1, t.Title, model.PriorityLabel(t.Priority), model.FormatDeadline(t.Deadline), model.AgeDays(t.CreatedAt, now))
	}
	return strings.Join(lines, "\n")
}

// RenderProfile renders the learning profile as key=value bullets.
func RenderProfile(p Profile) string {
	topTypes := NotAvailable
	if len(p.TopProjectTypes) > 0 {
		topTypes = strings.Join(p.TopProjectTypes, ", ")
	}
	flags := "none"
	if len(p.ConflictFlags) > 0 {
		flags = strings.Join(p.ConflictFlags, "; ")
	}
	lines := []string{
		fmt.Sprintf("- completed_tasks_sample=%d", p.CompletedTasksSample),
		fmt.Sprintf("- avg_completion_days=%s", p.AvgCompletionDisplay()),
		fmt.Sprintf("- willingness_score_1_to_5=%d", p.WillingnessScore),
		fmt.Sprintf("- resistance_signals=%d", p.ResistanceSignals),
		fmt.Sprintf("- momentum_signals=%d", p.MomentumSignals),
		fmt.Sprintf("- top_project_types=%s", topTypes),
		fmt.Sprintf("- best_completion_window=%s", p.BestCompletionWindow),
		fmt.Sprintf("- money_aligned_active_ratio=%.2f", p.MoneyAlignedActiveRatio),
		fmt.Sprintf("- conflict_flags=%s", flags),
	}
	if len(p.ProjectTypeBreakdownLines) > 0 {
		lines = append(lines, "- project_type_breakdown:")
		for _, l := range firstN(p.ProjectTypeBreakdownLines, maxBreakdownLines) {
			lines = append(lines, "  - "+l)
		}
	}
	return strings.Join(lines, "\n")
}

func writeSections(b *strings.Builder, sections []string) {
	b.WriteString("Create a response with these exact section headings:\n")
	for i, s := range sections {
		fmt.Fprintf(b, "%d) %s\n", i+1, s)
	}
}

func formatBullets(items []string, limit int) string {
	if len(items) == 0 {
		return "- (none)"
	}
	items = firstN(items, limit)
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func formatNow(now time.Time) string {
	return now.UTC().Format("2006-01-02 15:04") + " UTC"
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
