package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type userFunc func(ctx context.Context, userID int64) error

// broadcast runs fn for every target user with bounded concurrency. A failure
// for one user is logged and does not stop the others.
func (s *Scheduler) broadcast(ctx context.Context, job string, fn userFunc) error {
	log := s.log.With(zap.String("job", job), zap.String("run_id", uuid.NewString()))

	users, err := s.targets(ctx)
	if err != nil {
		return fmt.Errorf("listing target users: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, userID := range users {
		g.Go(func() error {
			if !s.runForUser(ctx, log, userID, fn) {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("job finished", zap.Int("users", len(users)), zap.Int64("failed", failed.Load()))
	return ctx.Err()
}

// runForUser reports whether fn succeeded. A panic counts as a failure for
// this user only.
func (s *Scheduler) runForUser(ctx context.Context, log *zap.Logger, userID int64, fn userFunc) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			log.Error("job panicked for user", zap.Int64("user_id", userID), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if ctx.Err() != nil {
		return false
	}
	if err := s.store.EnsureUser(ctx, userID); err != nil {
		log.Warn("preparing user failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if err := fn(ctx, userID); err != nil {
		log.Warn("job failed for user", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return true
}

func (s *Scheduler) targets(ctx context.Context) ([]int64, error) {
	if s.cfg.AllowedChatID != nil {
		return []int64{*s.cfg.AllowedChatID}, nil
	}
	return s.store.ListUserIDs(ctx)
}
