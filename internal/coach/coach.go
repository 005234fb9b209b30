package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chris/todocoach/internal/model"
	"go.uber.org/zap"
)

// Generator produces text from a system and user prompt. An empty result
// means the service is unavailable; implementations never return errors.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) string
}

// Store is the read side of persistence the coach needs. Every call is
// scoped to one user.
type Store interface {
	GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	ListActiveTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error)
	ListStaleTodos(ctx context.Context, userID int64, staleDays, limit int) ([]model.Todo, error)
	ListOverdueTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error)
	ListRecentCompletedTodos(ctx context.Context, userID int64, days, limit int) ([]model.Todo, error)
	GetStats(ctx context.Context, userID int64) (model.Stats, error)
	ListRecentNotes(ctx context.Context, userID int64, limit int) ([]string, error)
	ListRecentReflectionAnswers(ctx context.Context, userID int64, limit int) ([]string, error)
}

// Window bounds how much history one message looks at.
type Window struct {
	ActiveLimit     int
	CompletedDays   int
	CompletedLimit  int
	StaleDays       int
	StaleLimit      int
	OverdueLimit    int
	NoteLimit       int
	ReflectionLimit int
}

// CheckinWindow is used for daily check-ins and weekly reviews.
func CheckinWindow(staleDays int) Window {
	return Window{
		ActiveLimit:     30,
		CompletedDays:   120,
		CompletedLimit:  300,
		StaleDays:       staleDays,
		StaleLimit:      10,
		OverdueLimit:    10,
		NoteLimit:       10,
		ReflectionLimit: 8,
	}
}

// ImprovementWindow looks further back for /improve.
func ImprovementWindow() Window {
	return Window{
		ActiveLimit:     40,
		CompletedDays:   180,
		CompletedLimit:  400,
		StaleDays:       7,
		StaleLimit:      20,
		OverdueLimit:    20,
		NoteLimit:       20,
		ReflectionLimit: 12,
	}
}

// RenderCoachingMessage asks the generator for a check-in and falls back to
// the offline template when it returns nothing. The result is normalized.
func RenderCoachingMessage(ctx context.Context, gen Generator, in CheckinInput) string {
	if text := generate(ctx, gen, ComposeCheckinPrompt(in)); text != "" {
		return text
	}
	return FallbackCoaching(FallbackInput{
		MainGoal: in.MainGoal,
		Active:   in.Active,
		Stale:    in.Stale,
		Overdue:  in.Overdue,
		Profile:  in.Profile,
	})
}

// RenderImprovementMessage is RenderCoachingMessage for the improvement report.
func RenderImprovementMessage(ctx context.Context, gen Generator, in ImprovementInput) string {
	if text := generate(ctx, gen, ComposeImprovementPrompt(in)); text != "" {
		return text
	}
	return FallbackImprovement(in.Profile, in.MainGoal)
}

func generate(ctx context.Context, gen Generator, prompt string) string {
	if gen == nil {
		return ""
	}
	return Normalize(gen.Generate(ctx, CoachSystemPrompt, prompt))
}

// Coach loads a user's history and renders coaching messages. It keeps no
// per-user state and is safe for concurrent use.
type Coach struct {
	store     Store
	gen       Generator
	builder   *Builder
	staleDays int
	now       func() time.Time
	log       *zap.Logger
}

type Option func(*Coach)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coach) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coach) { c.log = l }
}

func New(store Store, gen Generator, classifier Classifier, staleDays int, opts ...Option) *Coach {
	c := &Coach{
		store:     store,
		gen:       gen,
		staleDays: staleDays,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.builder = NewBuilder(classifier, c.now)
	return c
}

type history struct {
	mainGoal    string
	active      []model.Todo
	completed   []model.Todo
	stale       []model.Todo
	overdue     []model.Todo
	notes       []string
	reflections []string
}

func (c *Coach) load(ctx context.Context, userID int64, w Window) (*history, error) {
	user, err := c.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user profile: %w", err)
	}
	h := &history{mainGoal: user.MainGoal}
	if strings.TrimSpace(h.mainGoal) == "" {
		h.mainGoal = model.DefaultMainGoal
	}
	if h.active, err = c.store.ListActiveTodos(ctx, userID, w.ActiveLimit); err != nil {
		return nil, fmt.Errorf("listing active todos: %w", err)
	}
	if h.completed, err = c.store.ListRecentCompletedTodos(ctx, userID, w.CompletedDays, w.CompletedLimit); err != nil {
		return nil, fmt.Errorf("listing completed todos: %w", err)
	}
	if h.stale, err = c.store.ListStaleTodos(ctx, userID, w.StaleDays, w.StaleLimit); err != nil {
		return nil, fmt.Errorf("listing stale todos: %w", err)
	}
	if h.overdue, err = c.store.ListOverdueTodos(ctx, userID, w.OverdueLimit); err != nil {
		return nil, fmt.Errorf("listing overdue todos: %w", err)
	}
	if h.notes, err = c.store.ListRecentNotes(ctx, userID, w.NoteLimit); err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	if h.reflections, err = c.store.ListRecentReflectionAnswers(ctx, userID, w.ReflectionLimit); err != nil {
		return nil, fmt.Errorf("listing reflections: %w", err)
	}
	return h, nil
}

func (c *Coach) profile(h *history) Profile {
	return c.builder.Build(ProfileInput{
		Active:      h.active,
		Completed:   h.completed,
		Stale:       h.stale,
		Overdue:     h.overdue,
		Notes:       h.notes,
		Reflections: h.reflections,
	})
}

// CoachingMessage renders a daily check-in, or a weekly review when weekly
// is set. Only storage errors are returned.
func (c *Coach) CoachingMessage(ctx context.Context, userID int64, weekly bool) (string, error) {
	w := CheckinWindow(c.staleDays)
	h, err := c.load(ctx, userID, w)
	if err != nil {
		return "", err
	}
	stats, err := c.store.GetStats(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading stats: %w", err)
	}
	p := c.profile(h)
	c.log.Debug("built learning profile",
		zap.Int64("user_id", userID),
		zap.String("cadence", Cadence(weekly)),
		zap.Int("completed_sample", p.CompletedTasksSample),
		zap.Strings("conflicts", p.ConflictFlags),
	)
	return RenderCoachingMessage(ctx, c.gen, CheckinInput{
		Now:         c.now(),
		Weekly:      weekly,
		MainGoal:    h.mainGoal,
		Stats:       stats,
		Active:      h.active,
		Overdue:     h.overdue,
		Stale:       h.stale,
		StaleDays:   w.StaleDays,
		Notes:       h.notes,
		Reflections: h.reflections,
		Profile:     p,
	}), nil
}

// ImprovementMessage renders the deeper execution analysis.
func (c *Coach) ImprovementMessage(ctx context.Context, userID int64) (string, error) {
	h, err := c.load(ctx, userID, ImprovementWindow())
	if err != nil {
		return "", err
	}
	p := c.profile(h)
	c.log.Debug("built learning profile",
		zap.Int64("user_id", userID),
		zap.String("cadence", "improvement"),
		zap.Int("completed_sample", p.CompletedTasksSample),
	)
	return RenderImprovementMessage(ctx, c.gen, ImprovementInput{
		Now:         c.now(),
		MainGoal:    h.mainGoal,
		Active:      h.active,
		Notes:       h.notes,
		Reflections: h.reflections,
		Profile:     p,
	}), nil
}
