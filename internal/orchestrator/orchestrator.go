// Package orchestrator coordinates a meal analysis across its
// collaborators: the workspace memory, the goal-status computation, and
// the external analyzer. Collaborator failures degrade the result instead
// of failing it; only missing domain data surfaces as an error.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/nutrition"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// AnalysisInput describes the meal to analyze.
type AnalysisInput struct {
	UserID      int64  `json:"user_id"`
	MealType    string `json:"meal_type,omitempty"`
	Description string `json:"description"`
}

// Analysis is the analyzer's verdict on one meal.
type Analysis struct {
	Foods       []string         `json:"foods"`
	Nutrition   nutrition.Macros `json:"nutrition"`
	HealthGrade string           `json:"health_grade,omitempty"`
	Advice      string           `json:"advice,omitempty"`
}

// Analyzer is the external analysis collaborator. One call may fail; the
// orchestrator then makes exactly one fallback call without preferences
// and never retries beyond that.
type Analyzer interface {
	Analyze(ctx context.Context, input AnalysisInput, prefs *workspace.Preferences) (*Analysis, error)
}

// Tasks accepts fire-and-forget follow-up work.
type Tasks interface {
	Submit(name string, fn func(context.Context) error) bool
}

// Recorder persists a completed analysis into workspace memory.
type Recorder interface {
	RecordAnalysis(userID int64, mealType string, a *Analysis)
}

// Projector rebuilds the shared workspace for first-time users.
type Projector interface {
	ProjectShared(userID int64) error
}

// Database is the read-only slice of healthdb the goal computation needs.
type Database interface {
	Profile(userID int64) (*healthdb.Profile, error)
	ActiveGoal(userID int64) (*healthdb.Goal, error)
	DailySummary(userID int64, date string) (*healthdb.DailySummary, error)
	WeightHistory(userID int64, limit int) ([]healthdb.WeightRecord, error)
}

// GoalStatus is today's energy budget and goal progress.
type GoalStatus struct {
	BMR       float64             `json:"bmr"`
	TDEE      float64             `json:"tdee"`
	Targets   nutrition.Macros    `json:"daily_targets"`
	Consumed  nutrition.Macros    `json:"today_consumed"`
	Remaining nutrition.Macros    `json:"remaining_budget"`
	Progress  *nutrition.Progress `json:"goal_progress,omitempty"`
	Defaulted bool                `json:"defaulted,omitempty"`
}

// GoalContext places one meal against the daily budget.
type GoalContext struct {
	Targets         nutrition.Macros     `json:"daily_targets"`
	RemainingBefore nutrition.Macros     `json:"before_meal_remaining"`
	Impact          nutrition.MealImpact `json:"impact"`
}

// Analysis result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AnalysisResult is the merged outcome of one orchestrated analysis.
type AnalysisResult struct {
	Status      string       `json:"analysis_status"`
	Analysis    *Analysis    `json:"nutrition_analysis,omitempty"`
	GoalContext *GoalContext `json:"goal_context,omitempty"`
	MemoryUsed  bool         `json:"memory_used"`
	Error       string       `json:"error,omitempty"`
}

// Orchestrator fans analysis work out to its collaborators.
type Orchestrator struct {
	db       Database
	ws       workspace.Store
	analyzer Analyzer
	tasks    Tasks
	recorder Recorder
	proj     Projector
	log      zerolog.Logger
	now      func() time.Time
}

// New creates an orchestrator.
func New(db Database, ws workspace.Store, analyzer Analyzer, tasks Tasks, recorder Recorder, proj Projector, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:       db,
		ws:       ws,
		analyzer: analyzer,
		tasks:    tasks,
		recorder: recorder,
		proj:     proj,
		log:      log,
		now:      time.Now,
	}
}

// AnalyzeWithContext runs the full analysis flow: memory load and goal
// status in parallel (each failure substituted independently), one
// analyzer call with preferences plus at most one fallback without them,
// meal impact, and a fire-and-forget persistence task. The result is
// returned without waiting for persistence.
func (o *Orchestrator) AnalyzeWithContext(ctx context.Context, input AnalysisInput) *AnalysisResult {
	var (
		wg     sync.WaitGroup
		prefs  *workspace.Preferences
		status GoalStatus
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		doc, err := o.ws.Read(input.UserID, workspace.KindShared)
		if err != nil {
			o.log.Warn().Int64("user_id", input.UserID).Err(err).Msg("memory load failed, analyzing without preferences")
			return
		}
		if doc != nil {
			if p := workspace.ExtractPreferences(doc); !p.Empty() {
				prefs = p
			}
		}
	}()
	go func() {
		defer wg.Done()
		st, err := o.goalStatus(input.UserID)
		if err != nil {
			o.log.Warn().Int64("user_id", input.UserID).Err(err).Msg("goal status failed, using defaults")
			status = defaultGoalStatus()
			return
		}
		status = *st
	}()
	wg.Wait()

	analysis, err := o.analyzer.Analyze(ctx, input, prefs)
	if err != nil && prefs != nil {
		o.log.Warn().Int64("user_id", input.UserID).Err(err).Msg("analyzer failed, retrying without preferences")
		analysis, err = o.analyzer.Analyze(ctx, input, nil)
	}
	if err != nil {
		o.log.Error().Int64("user_id", input.UserID).Err(err).Msg("analysis failed")
		return &AnalysisResult{Status: StatusFailed, Error: err.Error()}
	}

	result := &AnalysisResult{
		Status:     StatusCompleted,
		Analysis:   analysis,
		MemoryUsed: prefs != nil,
		GoalContext: &GoalContext{
			Targets:         status.Targets,
			RemainingBefore: status.Remaining,
			Impact:          nutrition.Impact(analysis.Nutrition, status.Targets, status.Remaining),
		},
	}

	userID, mealType := input.UserID, input.MealType
	o.tasks.Submit("record_analysis", func(context.Context) error {
		o.recorder.RecordAnalysis(userID, mealType, analysis)
		return nil
	})

	return result
}

// GetDailyStatus reports today's budget and progress. For a first-time
// user it projects the shared workspace before answering; a user without
// a profile surfaces healthdb.ErrNoProfile.
func (o *Orchestrator) GetDailyStatus(userID int64) (*GoalStatus, error) {
	if !o.ws.Exists(userID, workspace.KindShared) {
		if err := o.proj.ProjectShared(userID); err != nil {
			return nil, fmt.Errorf("orchestrator: daily status for user %d: %w", userID, err)
		}
	}
	status, err := o.goalStatus(userID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: daily status for user %d: %w", userID, err)
	}
	return status, nil
}

// goalStatus computes the live budget from the database.
func (o *Orchestrator) goalStatus(userID int64) (*GoalStatus, error) {
	profile, err := o.db.Profile(userID)
	if err != nil {
		return nil, err
	}

	now := o.now()
	age := 30
	if birth, err := time.Parse("2006-01-02", profile.BirthDate); err == nil {
		age = nutrition.Age(birth, now)
	}
	bmr := nutrition.BMR(profile.Weight, profile.Height, age, profile.Gender)
	tdee := nutrition.TDEE(bmr, profile.ActivityLevel)

	goal, err := o.db.ActiveGoal(userID)
	if err != nil {
		return nil, err
	}
	goalType := nutrition.GoalMaintain
	if goal != nil {
		goalType = nutrition.GoalType(goal.GoalType)
	}
	targets := nutrition.DailyTargets(tdee, goalType)

	consumed := nutrition.Macros{}
	if summary, err := o.db.DailySummary(userID, now.Format("2006-01-02")); err != nil {
		return nil, err
	} else if summary != nil {
		consumed = nutrition.Macros{
			Calories: summary.Calories,
			Protein:  summary.Protein,
			Carbs:    summary.Carbs,
			Fat:      summary.Fat,
		}
	}

	status := &GoalStatus{
		BMR:       bmr,
		TDEE:      tdee,
		Targets:   targets,
		Consumed:  consumed,
		Remaining: nutrition.Remaining(targets, consumed),
	}

	if goal != nil && goal.TargetWeight > 0 {
		history, err := o.db.WeightHistory(userID, 100)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			start := goal.StartWeight
			if start <= 0 {
				start = history[0].Weight
			}
			p := nutrition.GoalProgress(start, history[len(history)-1].Weight, goal.TargetWeight, goalType)
			status.Progress = &p
		}
	}
	return status, nil
}

// defaultGoalStatus is the substitute budget used when the live
// computation fails mid-analysis.
func defaultGoalStatus() GoalStatus {
	targets := nutrition.Macros{Calories: 2000, Protein: 100, Carbs: 250, Fat: 65}
	return GoalStatus{
		BMR:       1600,
		TDEE:      2200,
		Targets:   targets,
		Remaining: targets,
		Defaulted: true,
	}
}
