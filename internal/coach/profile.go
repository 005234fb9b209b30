package coach

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chris/todocoach/internal/model"
)

// NotAvailable marks a profile value that has no data behind it.
const NotAvailable = "n/a"

type completionWindow struct {
	name       string
	start, end int // inclusive UTC hours
}

// Checked in this order; the first window wins a tie.
var completionWindows = []completionWindow{
	{"early_morning", 5, 8},
	{"morning", 9, 11},
	{"afternoon", 12, 16},
	{"evening", 17, 21},
}

const (
	maxActiveHighPriority = 4
	minStaleHighPriority  = 2
	deadlineClusterSize   = 5
	deadlineClusterWindow = 7 * 24 * time.Hour
	maxTopProjectTypes    = 3
)

// ProfileInput is the history a profile is derived from.
type ProfileInput struct {
	Active      []model.Todo
	Completed   []model.Todo
	Stale       []model.Todo
	Overdue     []model.Todo
	Notes       []string
	Reflections []string
}

// Profile is a statistical summary of how a user gets tasks done.
type Profile struct {
	CompletedTasksSample      int
	AvgCompletionDays         *float64
	BestCompletionWindow      string
	TopProjectTypes           []string
	ProjectTypeBreakdownLines []string
	MomentumSignals           int
	ResistanceSignals         int
	WillingnessScore          int
	MoneyAlignedActiveRatio   float64
	ConflictFlags             []string
}

// AvgCompletionDisplay renders the average with one decimal, or n/a.
func (p Profile) AvgCompletionDisplay() string {
	if p.AvgCompletionDays == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f", *p.AvgCompletionDays)
}

type Builder struct {
	classifier Classifier
	now        func() time.Time
}

func NewBuilder(c Classifier, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{classifier: c, now: now}
}

// Build derives a profile. It does no I/O; todos with missing timestamps are
// left out of the duration and window aggregates.
func (b *Builder) Build(in ProfileInput) Profile {
	now := b.now().UTC()

	var durations []float64
	var typeOrder []string
	typeDurations := map[string][]float64{}
	windowCounts := make([]int, len(completionWindows))

	for _, t := range in.Completed {
		if t.CompletedAt == nil {
			continue
		}
		if !t.CreatedAt.IsZero() {
			days := math.Max(t.CompletedAt.Sub(t.CreatedAt).Hours()/24, 0)
			durations = append(durations, days)
			pt := t.ProjectType
			if pt == "" {
				pt = GeneralProjectType
			}
			if _, seen := typeDurations[pt]; !seen {
				typeOrder = append(typeOrder, pt)
			}
			typeDurations[pt] = append(typeDurations[pt], days)
		}
		hour := t.CompletedAt.UTC().Hour()
		for i, w := range completionWindows {
			if hour >= w.start && hour <= w.end {
				windowCounts[i]++
				break
			}
		}
	}

	sort.SliceStable(typeOrder, func(i, j int) bool {
		return len(typeDurations[typeOrder[i]]) > len(typeDurations[typeOrder[j]])
	})
	breakdown := make([]string, 0, len(typeOrder))
	for _, pt := range typeOrder {
		values := typeDurations[pt]
		breakdown = append(breakdown, fmt.Sprintf("%s: count=%d, avg_days=%.1f", pt, len(values), mean(values)))
	}
	top := typeOrder
	if len(top) > maxTopProjectTypes {
		top = top[:maxTopProjectTypes]
	}

	p := Profile{
		CompletedTasksSample:      len(in.Completed),
		BestCompletionWindow:      bestWindow(windowCounts),
		TopProjectTypes:           append([]string(nil), top...),
		ProjectTypeBreakdownLines: breakdown,
		MoneyAlignedActiveRatio:   roundTo(b.moneyRatio(in.Active), 2),
		ConflictFlags:             b.conflictFlags(in, now),
	}
	if len(durations) > 0 {
		avg := roundTo(mean(durations), 1)
		p.AvgCompletionDays = &avg
	}

	notes := make([]string, 0, len(in.Notes)+len(in.Reflections))
	notes = append(notes, in.Notes...)
	notes = append(notes, in.Reflections...)
	p.MomentumSignals, p.ResistanceSignals = b.classifier.CountSignals(notes)
	p.WillingnessScore = Willingness(p.MomentumSignals, p.ResistanceSignals)
	return p
}

// Willingness maps signal counts to a 1..5 score centred on 3.
func Willingness(momentum, resistance int) int {
	score := int(math.Round(3 + 0.2*float64(momentum-resistance)))
	return max(1, min(5, score))
}

func (b *Builder) moneyRatio(active []model.Todo) float64 {
	if len(active) == 0 {
		return 0
	}
	aligned := 0
	for _, t := range active {
		if b.classifier.MoneyAligned(t) {
			aligned++
		}
	}
	return float64(aligned) / float64(len(active))
}

func (b *Builder) conflictFlags(in ProfileInput, now time.Time) []string {
	var flags []string
	if n := countHighPriority(in.Active); n > maxActiveHighPriority {
		flags = append(flags, fmt.Sprintf("too many high-priority tasks in parallel (%d)", n))
	}
	if n := countHighPriority(in.Overdue); n > 0 {
		flags = append(flags, fmt.Sprintf("overdue high-priority tasks (%d)", n))
	}
	if n := countHighPriority(in.Stale); n >= minStaleHighPriority {
		flags = append(flags, fmt.Sprintf("stale high-priority tasks (%d)", n))
	}
	if n := countDueWithin(in.Active, now, deadlineClusterWindow); n >= deadlineClusterSize {
		flags = append(flags, fmt.Sprintf("deadline cluster in next 7 days (%d tasks)", n))
	}
	return flags
}

func countHighPriority(todos []model.Todo) int {
	n := 0
	for _, t := range todos {
		if t.Priority == model.PriorityHigh {
			n++
		}
	}
	return n
}

func countDueWithin(todos []model.Todo, now time.Time, window time.Duration) int {
	until := now.Add(window)
	n := 0
	for _, t := range todos {
		if t.Deadline != nil && !t.Deadline.Before(now) && !t.Deadline.After(until) {
			n++
		}
	}
	return n
}

func bestWindow(counts []int) string {
	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return NotAvailable
	}
	return completionWindows[best].name
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
