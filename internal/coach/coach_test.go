package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/chris/todocoach/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	profile     *model.UserProfile
	active      []model.Todo
	completed   []model.Todo
	stale       []model.Todo
	overdue     []model.Todo
	notes       []string
	reflections []string
	stats       model.Stats
	err         error

	staleDays []int
	limits    map[string]int
}

func (f *fakeStore) record(name string, limit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limits == nil {
		f.limits = map[string]int{}
	}
	f.limits[name] = limit
}

func (f *fakeStore) GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil {
		return &model.UserProfile{UserID: userID}, nil
	}
	return f.profile, nil
}

func (f *fakeStore) ListActiveTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error) {
	f.record("active", limit)
	return f.active, nil
}

func (f *fakeStore) ListStaleTodos(ctx context.Context, userID int64, staleDays, limit int) ([]model.Todo, error) {
	f.record("stale", limit)
	f.staleDays = append(f.staleDays, staleDays)
	return f.stale, nil
}

func (f *fakeStore) ListOverdueTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error) {
	f.record("overdue", limit)
	return f.overdue, nil
}

func (f *fakeStore) ListRecentCompletedTodos(ctx context.Context, userID int64, days, limit int) ([]model.Todo, error) {
	f.record("completed_days", days)
	f.record("completed", limit)
	return f.completed, nil
}

func (f *fakeStore) GetStats(ctx context.Context, userID int64) (model.Stats, error) {
	return f.stats, nil
}

func (f *fakeStore) ListRecentNotes(ctx context.Context, userID int64, limit int) ([]string, error) {
	f.record("notes", limit)
	return f.notes, nil
}

func (f *fakeStore) ListRecentReflectionAnswers(ctx context.Context, userID int64, limit int) ([]string, error) {
	f.record("reflections", limit)
	return f.reflections, nil
}

type fakeGenerator struct {
	reply  string
	system string
	user   string
	calls  int
}

func (g *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) string {
	g.calls++
	g.system, g.user = systemPrompt, userPrompt
	return g.reply
}

func TestCoachingMessage_UsesGeneratorOutput(t *testing.T) {
	store := &fakeStore{
		profile: &model.UserProfile{MainGoal: "land 3 clients"},
		active:  []model.Todo{activeTodo("Call lead", 1)},
	}
	gen := &fakeGenerator{reply: "## Today Focus\n* **Call** the lead\n\n\n1. done"}
	c := New(store, gen, DefaultClassifier(), 9, WithClock(fixedClock))

	got, err := c.CoachingMessage(context.Background(), 42, false)
	require.NoError(t, err)

	assert.Equal(t, "Today Focus\n- Call the lead\n\n1) done", got)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, CoachSystemPrompt, gen.system)
	assert.Contains(t, gen.user, "Main goal: land 3 clients")
	assert.Contains(t, gen.user, "Cadence: daily check-in")
	assert.Contains(t, gen.user, "Stale todos (age >= 9 days)")
	assert.Equal(t, []int{9}, store.staleDays)
	assert.Equal(t, 30, store.limits["active"])
	assert.Equal(t, 120, store.limits["completed_days"])
	assert.Equal(t, 300, store.limits["completed"])
	assert.Equal(t, 8, store.limits["reflections"])
}

func TestCoachingMessage_FallsBackWhenGeneratorEmpty(t *testing.T) {
	store := &fakeStore{}
	for _, reply := range []string{"", "   \n\n", "```\n```"} {
		gen := &fakeGenerator{reply: reply}
		c := New(store, gen, DefaultClassifier(), 7, WithClock(fixedClock))

		got, err := c.CoachingMessage(context.Background(), 1, true)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "1) Today Focus\n"+EmptyFocusLine), "reply %q", reply)
		assert.Contains(t, got, "supports your goal: make money.")
		assert.Contains(t, gen.user, "Cadence: weekly review")
	}
}

func TestCoachingMessage_NilGenerator(t *testing.T) {
	c := New(&fakeStore{}, nil, DefaultClassifier(), 7)
	got, err := c.CoachingMessage(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Contains(t, got, "6) Process Improvement")
}

func TestCoachingMessage_StoreError(t *testing.T) {
	boom := errors.New("disk gone")
	c := New(&fakeStore{err: boom}, &fakeGenerator{}, DefaultClassifier(), 7)

	_, err := c.CoachingMessage(context.Background(), 1, false)
	assert.ErrorIs(t, err, boom)

	_, err = c.ImprovementMessage(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestImprovementMessage(t *testing.T) {
	store := &fakeStore{
		completed: []model.Todo{completedTodo("sales", 1, 7)},
		notes:     []string{"shipped the demo"},
	}
	gen := &fakeGenerator{}
	c := New(store, gen, DefaultClassifier(), 3, WithClock(fixedClock))

	got, err := c.ImprovementMessage(context.Background(), 5)
	require.NoError(t, err)

	assert.Contains(t, gen.user, "- shipped the demo")
	assert.Contains(t, gen.user, "8) Next Experiment")
	assert.Equal(t, []int{7}, store.staleDays)
	assert.Equal(t, 40, store.limits["active"])
	assert.Equal(t, 180, store.limits["completed_days"])
	assert.Equal(t, 400, store.limits["completed"])
	assert.Equal(t, 20, store.limits["notes"])
	assert.Equal(t, 12, store.limits["reflections"])

	assert.Contains(t, got, "- You execute best during: early_morning.")
	assert.Contains(t, got, "- Your dominant project types: sales.")
	assert.Contains(t, got, "- Average time to completion: 1.0 day(s).")
	assert.Equal(t, got, Normalize(got))
}

func TestRenderCoachingMessage_IsNormalized(t *testing.T) {
	gen := &fakeGenerator{reply: "```\n### Split This\n  - step **one**\n```"}
	got := RenderCoachingMessage(context.Background(), gen, CheckinInput{Now: testNow})
	assert.Equal(t, "Split This\n- step one", got)
}
