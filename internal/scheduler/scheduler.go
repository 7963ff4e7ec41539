// Package scheduler drives the periodic workspace refreshes: daily passes
// over shared and goal workspaces, weekly rollups for nutrition and chat.
// Each pass selects only the users the task is relevant for, and a failure
// for one user never aborts the pass.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Task names accepted by RunNow.
const (
	TaskSharedMemory = "shared_memory"
	TaskGoalTracking = "goal_tracking"
	TaskNutrition    = "nutrition"
	TaskChat         = "chat"
)

// Selections picks the user populations each task operates on.
type Selections interface {
	ActiveUserIDs(since string) ([]int64, error)
	UserIDsWithActiveGoal() ([]int64, error)
	UserIDsWithMealsSince(since string) ([]int64, error)
	UserIDsWithSessionsSince(since string) ([]int64, error)
}

// Projector refreshes individual workspaces.
type Projector interface {
	ProjectShared(userID int64) error
	ProjectGoalTracking(userID int64) error
	ProjectNutrition(userID int64) error
	ProjectChat(userID int64) error
}

// Scheduler owns the periodic refresh loops. It carries no global state;
// the composition root constructs one and runs it for the process
// lifetime.
type Scheduler struct {
	db   Selections
	proj Projector
	log  zerolog.Logger
	now  func() time.Time

	daily        time.Duration
	weekly       time.Duration
	activeWindow time.Duration
}

// New creates a scheduler with the default cadences: daily tasks every
// 24h, weekly tasks every 7 days, and a 30-day activity window for the
// shared refresh.
func New(db Selections, proj Projector, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		db:           db,
		proj:         proj,
		log:          log,
		now:          time.Now,
		daily:        24 * time.Hour,
		weekly:       7 * 24 * time.Hour,
		activeWindow: 30 * 24 * time.Hour,
	}
}

// Run blocks, firing the daily and weekly passes until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	dailyTick := time.NewTicker(s.daily)
	weeklyTick := time.NewTicker(s.weekly)
	defer dailyTick.Stop()
	defer weeklyTick.Stop()

	s.log.Info().
		Dur("daily", s.daily).
		Dur("weekly", s.weekly).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-dailyTick.C:
			s.runPass(TaskSharedMemory)
			s.runPass(TaskGoalTracking)
		case <-weeklyTick.C:
			s.runPass(TaskNutrition)
			s.runPass(TaskChat)
		}
	}
}

// RunNow executes a single named task immediately.
func (s *Scheduler) RunNow(name string) error {
	switch name {
	case TaskSharedMemory, TaskGoalTracking, TaskNutrition, TaskChat:
		return s.runPass(name)
	}
	return fmt.Errorf("scheduler: unknown task %q", name)
}

// runPass selects the task's users and refreshes them one by one,
// counting successes and failures.
func (s *Scheduler) runPass(name string) error {
	users, project, err := s.taskFor(name)
	if err != nil {
		s.log.Error().Str("task", name).Err(err).Msg("user selection failed")
		return fmt.Errorf("scheduler: select users for %s: %w", name, err)
	}

	var ok, failed int
	for _, id := range users {
		if err := project(id); err != nil {
			failed++
			s.log.Warn().Str("task", name).Int64("user_id", id).Err(err).Msg("refresh failed")
			continue
		}
		ok++
	}
	s.log.Info().
		Str("task", name).
		Int("users", len(users)).
		Int("ok", ok).
		Int("failed", failed).
		Msg("scheduled pass finished")
	return nil
}

func (s *Scheduler) taskFor(name string) ([]int64, func(int64) error, error) {
	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)

	switch name {
	case TaskSharedMemory:
		users, err := s.db.ActiveUserIDs(now.Add(-s.activeWindow).Format(time.RFC3339))
		return users, s.proj.ProjectShared, err
	case TaskGoalTracking:
		users, err := s.db.UserIDsWithActiveGoal()
		return users, s.proj.ProjectGoalTracking, err
	case TaskNutrition:
		users, err := s.db.UserIDsWithMealsSince(weekAgo.Format("2006-01-02"))
		return users, s.proj.ProjectNutrition, err
	case TaskChat:
		users, err := s.db.UserIDsWithSessionsSince(weekAgo.Format(time.RFC3339))
		return users, s.proj.ProjectChat, err
	}
	return nil, nil, fmt.Errorf("unknown task %q", name)
}
