package coach

import (
	"fmt"
	"strings"

	"github.com/chris/todocoach/internal/model"
)

// EmptyFocusLine stands in for Today Focus when there are no active todos.
const EmptyFocusLine = "- Capture your next 1-3 money-related actions."

const (
	fallbackFocusLimit    = 3
	fallbackSplitLimit    = 2
	fallbackConflictLimit = 3
)

// FallbackInput is what the offline check-in message is built from.
type FallbackInput struct {
	MainGoal string
	Active   []model.Todo
	Stale    []model.Todo
	Overdue  []model.Todo
	Profile  Profile
}

// FallbackCoaching builds a check-in message without the generation service.
// It follows the same six sections the model is asked for and is returned
// already normalized.
func FallbackCoaching(in FallbackInput) string {
	var focus []string
	for _, t := range firstN(in.Active, fallbackFocusLimit) {
		focus = append(focus, fmt.Sprintf("- %s (priority: %s)", t.Title, model.PriorityLabel(t.Priority)))
	}
	if len(focus) == 0 {
		focus = []string{EmptyFocusLine}
	}

	var split []string
	for _, t := range firstN(in.Stale, fallbackSplitLimit) {
		split = append(split, fmt.Sprintf("- %s: define the very next physical step and a 15-minute starter block.", t.Title))
	}
	if len(split) == 0 {
		split = []string{"- No stale tasks detected. Keep tasks small and executable."}
	}

	realignment := "- Keep tasks directly tied to revenue, client value, or skill monetization at priority high."
	if len(in.Overdue) > 0 {
		realignment = "- Overdue tasks exist. Move overdue revenue-impact tasks to the top today."
	}

	process := []string{
		fmt.Sprintf("- Average completion time: %s day(s).", in.Profile.AvgCompletionDisplay()),
		"- Timebox one high-value task today before low-impact admin work.",
	}
	if len(in.Profile.ConflictFlags) > 0 {
		process = append(process, fmt.Sprintf("- Resolve conflict: %s.", in.Profile.ConflictFlags[0]))
	}

	sections := [][]string{
		focus,
		split,
		{realignment},
		{fmt.Sprintf("- Identify one offer or outreach action that supports your goal: %s.", in.MainGoal)},
		{"- What did you complete since the last check-in?"},
		process,
	}
	return Normalize(renderSections(CheckinSections, sections))
}

// FallbackImprovement builds the eight-section execution analysis from the
// profile alone.
func FallbackImprovement(p Profile, mainGoal string) string {
	topTypes := NotAvailable
	if len(p.TopProjectTypes) > 0 {
		topTypes = strings.Join(firstN(p.TopProjectTypes, maxTopProjectTypes), ", ")
	}
	window := p.BestCompletionWindow
	if window == "" {
		window = NotAvailable
	}
	conflicts := p.ConflictFlags
	if len(conflicts) == 0 {
		conflicts = []string{"too many parallel priorities"}
	}
	var conflictLines []string
	for _, c := range firstN(conflicts, fallbackConflictLimit) {
		conflictLines = append(conflictLines, "- "+c)
	}

	sections := [][]string{
		{
			fmt.Sprintf("- You execute best during: %s.", window),
			fmt.Sprintf("- Your dominant project types: %s.", topTypes),
		},
		{
			fmt.Sprintf("- Average time to completion: %s day(s).", p.AvgCompletionDisplay()),
			"- Fast wins exist when tasks are small and concrete.",
		},
		{
			fmt.Sprintf("- Estimated willingness score: %d/5.", p.WillingnessScore),
			"- Reduce friction by defining one next physical action per task.",
		},
		{
			fmt.Sprintf("- Keep more active tasks linked to goal: %s.", mainGoal),
			"- Move low-leverage admin work after revenue tasks.",
		},
		conflictLines,
		{
			"- Limit active high-priority tasks to 3.",
			"- Timebox one 45-minute revenue task first each day.",
			"- Break any task older than 7 days into 2-3 steps.",
			"- Do a quick end-of-day review and mark completions.",
			"- Batch low-value admin work into one small block.",
		},
		{
			"- Ask the bot to propose next actions for stale tasks.",
			"- Ask the bot to re-rank tasks by money impact every weekend.",
			"- Ask the bot for a daily execution plan in your best work window.",
		},
		{"- For 7 days: do one revenue-first block daily and report done/not done each evening."},
	}
	return Normalize(renderSections(ImprovementSections, sections))
}

func renderSections(headings []string, bodies [][]string) string {
	blocks := make([]string, len(headings))
	for i, h := range headings {
		blocks[i] = fmt.Sprintf("%d) %s\n%s", i+1, h, strings.Join(bodies[i], "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
