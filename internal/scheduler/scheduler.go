// Package scheduler runs the timed jobs: daily check-ins, the weekly review,
// weekend chore reminders and the daily reflection questions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chris/todocoach/internal/bot"
	"github.com/chris/todocoach/internal/model"
)

const (
	JobDaily         = "daily"
	JobWeekly        = "weekly"
	JobChoresMorning = "chores_morning"
	JobChoresConfirm = "chores_confirm"
	JobReflection    = "reflection"
)

const (
	choresMorningIntro = "Weekend chore reminder (morning)\n\nPlease answer each chore one by one."
	choresConfirmIntro = "End-of-day chore confirmation\n\nPlease confirm each chore.\nAnything not done stays in weekend reminders."
	dueChoreLimit      = 25
)

// Sender delivers a message to a user outside of a conversation.
type Sender interface {
	Send(ctx context.Context, userID int64, r bot.Reply) error
}

type Store interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	EnsureUser(ctx context.Context, userID int64) error
	ListDueChores(ctx context.Context, userID int64, day time.Time, limit int) ([]model.Chore, error)
	EnsureDailyReflection(ctx context.Context, userID int64, key, question string, at time.Time) (bool, error)
}

type Coach interface {
	CoachingMessage(ctx context.Context, userID int64, weekly bool) (string, error)
}

// Config holds the UTC hours of each job.
type Config struct {
	CheckinHour       int
	WeeklyReviewDay   time.Weekday
	WeeklyReviewHour  int
	ChoresMorningHour int
	ChoresConfirmHour int
	ReflectionHour    int
	// AllowedChatID restricts broadcasts to one user when set.
	AllowedChatID *int64
	Concurrency   int
}

type Scheduler struct {
	cron     *cron.Cron
	store    Store
	coach    Coach
	sender   Sender
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
	entryIDs map[string]cron.EntryID
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func New(store Store, c Coach, sender Sender, cfg Config, opts ...Option) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		store:    store,
		coach:    c,
		sender:   sender,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.NewNop(),
		entryIDs: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("scheduler")
	return s
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	specs := map[string]string{
		JobDaily:         daily(s.cfg.CheckinHour),
		JobWeekly:        fmt.Sprintf("0 %d * * %d", s.cfg.WeeklyReviewHour, int(s.cfg.WeeklyReviewDay)),
		JobChoresMorning: daily(s.cfg.ChoresMorningHour),
		JobChoresConfirm: daily(s.cfg.ChoresConfirmHour),
		JobReflection:    daily(s.cfg.ReflectionHour),
	}
	for _, name := range JobNames() {
		job := name
		id, err := s.cron.AddFunc(specs[job], func() {
			if err := s.RunJob(context.Background(), job); err != nil {
				s.log.Error("job failed", zap.String("job", job), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("adding %s job: %w", job, err)
		}
		s.entryIDs[job] = id
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.entryIDs)))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when a registered job fires next.
func (s *Scheduler) Next(job string) (time.Time, bool) {
	id, ok := s.entryIDs[job]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func JobNames() []string {
	return []string{JobDaily, JobWeekly, JobChoresMorning, JobChoresConfirm, JobReflection}
}

// RunJob runs one job immediately over all target users.
func (s *Scheduler) RunJob(ctx context.Context, job string) error {
	switch job {
	case JobDaily:
		return s.broadcast(ctx, job, s.checkin("Daily Check-in", false))
	case JobWeekly:
		return s.broadcast(ctx, job, s.checkin("Weekly Review", true))
	case JobChoresMorning:
		return s.choreJob(ctx, job, choresMorningIntro)
	case JobChoresConfirm:
		return s.choreJob(ctx, job, choresConfirmIntro)
	case JobReflection:
		return s.broadcast(ctx, job, s.reflections)
	default:
		names := JobNames()
		sort.Strings(names)
		return fmt.Errorf("unknown job %q (want one of %v)", job, names)
	}
}

func (s *Scheduler) checkin(title string, weekly bool) userFunc {
	return func(ctx context.Context, userID int64) error {
		msg, err := s.coach.CoachingMessage(ctx, userID, weekly)
		if err != nil {
			return fmt.Errorf("building message: %w", err)
		}
		return s.sender.Send(ctx, userID, bot.Reply{Text: title + "\n\n" + msg})
	}
}

func (s *Scheduler) choreJob(ctx context.Context, job, intro string) error {
	now := s.now()
	if !model.IsWeekend(now) {
		s.log.Debug("skipping chores outside the weekend", zap.String("job", job))
		return nil
	}
	return s.broadcast(ctx, job, func(ctx context.Context, userID int64) error {
		due, err := s.store.ListDueChores(ctx, userID, now, dueChoreLimit)
		if err != nil {
			return fmt.Errorf("listing due chores: %w", err)
		}
		if len(due) == 0 {
			return nil
		}
		if err := s.sender.Send(ctx, userID, bot.Reply{Text: intro}); err != nil {
			return err
		}
		for _, c := range due {
			if err := s.sender.Send(ctx, userID, bot.ChoreReminder(c)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Scheduler) reflections(ctx context.Context, userID int64) error {
	now := s.now()
	for _, q := range model.DailyReflections {
		created, err := s.store.EnsureDailyReflection(ctx, userID, q.Key, q.Question, now)
		if err != nil {
			return fmt.Errorf("creating reflection %s: %w", q.Key, err)
		}
		if !created {
			continue
		}
		if err := s.sender.Send(ctx, userID, bot.Reply{Text: bot.ReflectionPrompt(q.Question)}); err != nil {
			return err
		}
	}
	return nil
}

func daily(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}
