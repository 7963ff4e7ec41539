package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSelections struct {
	active   []int64
	goals    []int64
	meals    []int64
	sessions []int64
}

func (f *fakeSelections) ActiveUserIDs(string) ([]int64, error)            { return f.active, nil }
func (f *fakeSelections) UserIDsWithActiveGoal() ([]int64, error)          { return f.goals, nil }
func (f *fakeSelections) UserIDsWithMealsSince(string) ([]int64, error)    { return f.meals, nil }
func (f *fakeSelections) UserIDsWithSessionsSince(string) ([]int64, error) { return f.sessions, nil }

type fakeProjector struct {
	shared, goal, nutrition, chat []int64
	failUser                      int64
}

func (f *fakeProjector) project(list *[]int64, userID int64) error {
	if userID == f.failUser {
		return errors.New("projection failed")
	}
	*list = append(*list, userID)
	return nil
}

func (f *fakeProjector) ProjectShared(id int64) error       { return f.project(&f.shared, id) }
func (f *fakeProjector) ProjectGoalTracking(id int64) error { return f.project(&f.goal, id) }
func (f *fakeProjector) ProjectNutrition(id int64) error    { return f.project(&f.nutrition, id) }
func (f *fakeProjector) ProjectChat(id int64) error         { return f.project(&f.chat, id) }

func TestRunNowSelectsRightUsers(t *testing.T) {
	sel := &fakeSelections{
		active:   []int64{1, 2},
		goals:    []int64{2},
		meals:    []int64{3},
		sessions: []int64{4},
	}
	proj := &fakeProjector{}
	s := New(sel, proj, zerolog.Nop())

	for _, task := range []string{TaskSharedMemory, TaskGoalTracking, TaskNutrition, TaskChat} {
		if err := s.RunNow(task); err != nil {
			t.Fatalf("RunNow(%s): %v", task, err)
		}
	}

	if len(proj.shared) != 2 || len(proj.goal) != 1 || len(proj.nutrition) != 1 || len(proj.chat) != 1 {
		t.Errorf("projections = %v %v %v %v", proj.shared, proj.goal, proj.nutrition, proj.chat)
	}
	if proj.nutrition[0] != 3 || proj.chat[0] != 4 {
		t.Errorf("wrong users: nutrition %v, chat %v", proj.nutrition, proj.chat)
	}
}

func TestRunNowUnknownTask(t *testing.T) {
	s := New(&fakeSelections{}, &fakeProjector{}, zerolog.Nop())
	if err := s.RunNow("defrag"); err == nil {
		t.Error("unknown task accepted")
	}
}

func TestPassToleratesPerUserFailure(t *testing.T) {
	sel := &fakeSelections{active: []int64{1, 2, 3}}
	proj := &fakeProjector{failUser: 2}
	s := New(sel, proj, zerolog.Nop())

	if err := s.RunNow(TaskSharedMemory); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if len(proj.shared) != 2 {
		t.Errorf("refreshed %v, want users 1 and 3 despite user 2 failing", proj.shared)
	}
}

func TestRunFiresTicks(t *testing.T) {
	sel := &fakeSelections{active: []int64{1}, goals: []int64{1}}
	proj := &fakeProjector{}
	s := New(sel, proj, zerolog.Nop())
	s.daily = 10 * time.Millisecond
	s.weekly = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	if len(proj.shared) == 0 || len(proj.goal) == 0 {
		t.Error("daily pass never fired")
	}
}
