package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chris/todocoach/internal/bot"
	"github.com/chris/todocoach/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	saturday = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	monday   = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	mu          sync.Mutex
	users       []int64
	ensured     map[int64]int
	chores      map[int64][]model.Chore
	reflections map[string]bool
	failUser    int64
}

func newFakeStore(users ...int64) *fakeStore {
	return &fakeStore{
		users:       users,
		ensured:     map[int64]int{},
		chores:      map[int64][]model.Chore{},
		reflections: map[string]bool{},
	}
}

func (f *fakeStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	return f.users, nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured[userID]++
	return nil
}

func (f *fakeStore) ListDueChores(ctx context.Context, userID int64, day time.Time, limit int) ([]model.Chore, error) {
	if userID == f.failUser {
		return nil, errors.New("database is locked")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chores[userID], nil
}

func (f *fakeStore) EnsureDailyReflection(ctx context.Context, userID int64, key, question string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := fmt.Sprintf("%d/%s/%s", userID, at.Format(time.DateOnly), key)
	if f.reflections[k] {
		return false, nil
	}
	f.reflections[k] = true
	return true, nil
}

type fakeCoach struct {
	failUser  int64
	panicUser int64
}

func (f *fakeCoach) CoachingMessage(ctx context.Context, userID int64, weekly bool) (string, error) {
	if userID == f.failUser {
		return "", errors.New("store unavailable")
	}
	if userID == f.panicUser {
		panic("nil session")
	}
	if weekly {
		return "weekly body", nil
	}
	return "daily body", nil
}

type sent struct {
	userID int64
	reply  bot.Reply
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSender) Send(ctx context.Context, userID int64, r bot.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{userID: userID, reply: r})
	return nil
}

func (f *fakeSender) forUser(userID int64) []bot.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []bot.Reply
	for _, s := range f.sent {
		if s.userID == userID {
			out = append(out, s.reply)
		}
	}
	return out
}

func (f *fakeSender) users() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[int64]bool{}
	var out []int64
	for _, s := range f.sent {
		if !seen[s.userID] {
			seen[s.userID] = true
			out = append(out, s.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newTestScheduler(store *fakeStore, c *fakeCoach, now time.Time, cfg Config, opts ...Option) (*Scheduler, *fakeSender) {
	sender := &fakeSender{}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(store, c, sender, cfg, opts...), sender
}

func TestRunJob(t *testing.T) {
	tests := []struct {
		Desc  string
		Job   string
		Title string
	}{
		{Desc: "daily check-in", Job: JobDaily, Title: "Daily Check-in\n\ndaily body"},
		{Desc: "weekly review", Job: JobWeekly, Title: "Weekly Review\n\nweekly body"},
	}
	for _, tt := range tests {
		t.Run(tt.Desc, func(t *testing.T) {
			store := newFakeStore(1, 2, 3)
			s, sender := newTestScheduler(store, &fakeCoach{}, saturday, Config{})

			require.NoError(t, s.RunJob(context.Background(), tt.Job))

			assert.Equal(t, []int64{1, 2, 3}, sender.users())
			for _, id := range []int64{1, 2, 3} {
				replies := sender.forUser(id)
				require.Len(t, replies, 1)
				assert.Equal(t, tt.Title, replies[0].Text)
				assert.Equal(t, 1, store.ensured[id])
			}
		})
	}
}

func TestRunJobUnknown(t *testing.T) {
	s, _ := newTestScheduler(newFakeStore(), &fakeCoach{}, saturday, Config{})
	err := s.RunJob(context.Background(), "hourly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestBroadcastContinuesAfterUserFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newFakeStore(1, 2, 3)
	s, sender := newTestScheduler(store, &fakeCoach{failUser: 2}, saturday, Config{}, WithLogger(zap.New(core)))

	require.NoError(t, s.RunJob(context.Background(), JobDaily))

	assert.Equal(t, []int64{1, 3}, sender.users())
	failures := logs.FilterMessage("job failed for user").All()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(2), failures[0].ContextMap()["user_id"])
	assert.Equal(t, JobDaily, failures[0].ContextMap()["job"])
	assert.NotEmpty(t, failures[0].ContextMap()["run_id"])
}

func TestBroadcastRecoversUserPanic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newFakeStore(1, 2, 3)
	s, sender := newTestScheduler(store, &fakeCoach{panicUser: 1}, saturday, Config{Concurrency: 1}, WithLogger(zap.New(core)))

	require.NotPanics(t, func() {
		require.NoError(t, s.RunJob(context.Background(), JobDaily))
	})

	assert.Equal(t, []int64{2, 3}, sender.users())
	panics := logs.FilterMessage("job panicked for user").All()
	require.Len(t, panics, 1)
	assert.Equal(t, int64(1), panics[0].ContextMap()["user_id"])
	assert.Equal(t, "nil session", panics[0].ContextMap()["panic"])
}

func TestBroadcastAllowedChatOnly(t *testing.T) {
	allowed := int64(42)
	store := newFakeStore(1, 2)
	s, sender := newTestScheduler(store, &fakeCoach{}, saturday, Config{AllowedChatID: &allowed})

	require.NoError(t, s.RunJob(context.Background(), JobDaily))

	assert.Equal(t, []int64{42}, sender.users())
	assert.Equal(t, 1, store.ensured[42])
}

func TestBroadcastCanceled(t *testing.T) {
	s, sender := newTestScheduler(newFakeStore(1, 2), &fakeCoach{}, saturday, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.RunJob(ctx, JobDaily), context.Canceled)
	assert.Empty(t, sender.users())
}

func TestChoreJobs(t *testing.T) {
	due := []model.Chore{
		{ID: 1, Name: "Water plants", NextDueDate: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Name: "Clean sheets", NextDueDate: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)},
	}
	tests := []struct {
		Desc  string
		Job   string
		Intro string
	}{
		{Desc: "morning reminder", Job: JobChoresMorning, Intro: choresMorningIntro},
		{Desc: "end of day confirmation", Job: JobChoresConfirm, Intro: choresConfirmIntro},
	}
	for _, tt := range tests {
		t.Run(tt.Desc, func(t *testing.T) {
			store := newFakeStore(1, 2)
			store.chores[1] = due
			s, sender := newTestScheduler(store, &fakeCoach{}, saturday, Config{})

			require.NoError(t, s.RunJob(context.Background(), tt.Job))

			replies := sender.forUser(1)
			require.Len(t, replies, 3)
			assert.Equal(t, tt.Intro, replies[0].Text)
			assert.Equal(t, "Water plants\nDue since: 2026-10-17\n\nDone today?", replies[1].Text)
			assert.Equal(t, bot.ChoreActionButtons(2), replies[2].Buttons)
			assert.Empty(t, sender.forUser(2), "no chores due means no intro")
		})
	}
}

func TestChoreJobSkipsWeekdays(t *testing.T) {
	store := newFakeStore(1)
	store.chores[1] = []model.Chore{{ID: 1, Name: "Water plants"}}
	s, sender := newTestScheduler(store, &fakeCoach{}, monday, Config{})

	require.NoError(t, s.RunJob(context.Background(), JobChoresMorning))
	assert.Empty(t, sender.users())
}

func TestChoreJobStoreFailure(t *testing.T) {
	store := newFakeStore(1, 2)
	store.failUser = 1
	store.chores[2] = []model.Chore{{ID: 7, Name: "Clean sheets"}}
	s, sender := newTestScheduler(store, &fakeCoach{}, saturday, Config{})

	require.NoError(t, s.RunJob(context.Background(), JobChoresMorning))
	assert.Equal(t, []int64{2}, sender.users())
}

func TestReflectionJobSendsOncePerDay(t *testing.T) {
	store := newFakeStore(1)
	s, sender := newTestScheduler(store, &fakeCoach{}, saturday, Config{})

	require.NoError(t, s.RunJob(context.Background(), JobReflection))
	require.NoError(t, s.RunJob(context.Background(), JobReflection))

	replies := sender.forUser(1)
	require.Len(t, replies, len(model.DailyReflections))
	for i, q := range model.DailyReflections {
		assert.Equal(t, bot.ReflectionPrompt(q.Question), replies[i].Text)
		assert.True(t, strings.HasPrefix(replies[i].Text, "Daily Reflection (5 min)"))
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s, _ := newTestScheduler(newFakeStore(), &fakeCoach{}, saturday, Config{
		CheckinHour:       16,
		WeeklyReviewDay:   time.Sunday,
		WeeklyReviewHour:  17,
		ChoresMorningHour: 8,
		ChoresConfirmHour: 20,
		ReflectionHour:    21,
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	for _, job := range JobNames() {
		next, ok := s.Next(job)
		require.True(t, ok, job)
		assert.Equal(t, time.UTC, next.Location(), job)
		assert.Zero(t, next.Minute(), job)
	}
	weekly, _ := s.Next(JobWeekly)
	assert.Equal(t, time.Sunday, weekly.Weekday())
	assert.Equal(t, 17, weekly.Hour())
	reflection, _ := s.Next(JobReflection)
	assert.Equal(t, 21, reflection.Hour())
}

func TestStartRejectsBadHour(t *testing.T) {
	s, _ := newTestScheduler(newFakeStore(), &fakeCoach{}, saturday, Config{CheckinHour: 30})
	assert.Error(t, s.Start())
}
