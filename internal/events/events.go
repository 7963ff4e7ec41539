// Package events reacts to domain changes (new analyses, weigh-ins, goal
// and profile edits, ended conversations) by patching the affected
// workspace sections and re-projecting what depends on them.
//
// Handlers never return errors: memory maintenance must not fail the
// operation that triggered it, so every failure is swallowed and logged.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/projection"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// Projector is the slice of the projection service the handlers trigger.
type Projector interface {
	ProjectShared(userID int64) error
	ProjectGoalTracking(userID int64) error
}

// Handler applies workspace updates in response to domain events.
type Handler struct {
	ws   workspace.Store
	proj Projector
	log  zerolog.Logger
	now  func() time.Time
}

// New creates an event handler.
func New(ws workspace.Store, proj Projector, log zerolog.Logger) *Handler {
	return &Handler{ws: ws, proj: proj, log: log, now: time.Now}
}

// MealAnalysis is the result of one completed meal analysis.
type MealAnalysis struct {
	MealType    string
	Foods       []string
	Calories    float64
	HealthGrade string
}

// AnalysisRecorded appends the analysis to the nutrition workspace and
// refreshes the goal workspace so today's budget reflects the meal.
func (h *Handler) AnalysisRecorded(userID int64, a MealAnalysis) {
	foods := strings.Join(a.Foods, ", ")
	if foods == "" {
		foods = "unidentified"
	}
	grade := a.HealthGrade
	if grade == "" {
		grade = "B"
	}
	mealType := a.MealType
	if mealType == "" {
		mealType = "meal"
	}
	line := fmt.Sprintf("- %s %s: %s, %.0f kcal (%s)",
		h.now().Format("2006-01-02"), mealType, foods, a.Calories, grade)

	if err := h.ws.UpdateSection(userID, workspace.KindNutrition, projection.SectionRecentAnalyses, line, false); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("analysis event: nutrition update failed")
	}
	if err := h.proj.ProjectGoalTracking(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("analysis event: goal projection failed")
	}
}

// WeightRecorded notes the new weight immediately, then re-projects the
// goal and shared workspaces to recompute progress and basic info.
func (h *Handler) WeightRecorded(userID int64, weightKg float64, recordedAt time.Time) {
	line := fmt.Sprintf("- Current: %.1f kg (%s)", weightKg, recordedAt.Format("2006-01-02"))
	if err := h.ws.UpdateSection(userID, workspace.KindGoalTracking, projection.SectionWeightProgress, line, true); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("weight event: goal update failed")
	}
	if err := h.proj.ProjectGoalTracking(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("weight event: goal projection failed")
	}
	if err := h.proj.ProjectShared(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("weight event: shared projection failed")
	}
}

// GoalChanged re-projects the goal workspace after a goal is created,
// completed, or abandoned.
func (h *Handler) GoalChanged(userID int64) {
	if err := h.proj.ProjectGoalTracking(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("goal event: projection failed")
	}
}

// calcFields are the profile fields that change energy math.
var calcFields = map[string]bool{
	"weight":         true,
	"height":         true,
	"age":            true,
	"activity_level": true,
	"gender":         true,
}

// ProfileUpdated re-projects the shared workspace, and the goal workspace
// too when a calculation-relevant field changed.
func (h *Handler) ProfileUpdated(userID int64, updatedFields []string) {
	if err := h.proj.ProjectShared(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("profile event: shared projection failed")
	}
	for _, f := range updatedFields {
		if calcFields[f] {
			if err := h.proj.ProjectGoalTracking(userID); err != nil {
				h.log.Error().Int64("user_id", userID).Err(err).Msg("profile event: goal projection failed")
			}
			return
		}
	}
}

// AllergyUpdated re-projects the shared workspace.
func (h *Handler) AllergyUpdated(userID int64) {
	if err := h.proj.ProjectShared(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("allergy event: projection failed")
	}
}

// DiseaseUpdated re-projects the shared workspace.
func (h *Handler) DiseaseUpdated(userID int64) {
	if err := h.proj.ProjectShared(userID); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("disease event: projection failed")
	}
}

// SessionSummary describes an ended conversation.
type SessionSummary struct {
	Topic       string
	KeyQuestion string
	Topics      []string
}

// ConversationEnded appends an interaction summary to the chat workspace
// and replaces the topic list when the summary carries one.
func (h *Handler) ConversationEnded(userID int64, summary SessionSummary) {
	topic := summary.Topic
	if topic == "" {
		topic = "general"
	}
	line := fmt.Sprintf("- %s [%s] %s", h.now().Format("2006-01-02"), topic, summary.KeyQuestion)
	if err := h.ws.UpdateSection(userID, workspace.KindChat, projection.SectionRecentInteractions, line, false); err != nil {
		h.log.Error().Int64("user_id", userID).Err(err).Msg("conversation event: interaction update failed")
	}

	if len(summary.Topics) > 0 {
		body := "- " + strings.Join(summary.Topics, "\n- ")
		if err := h.ws.UpdateSection(userID, workspace.KindChat, projection.SectionFrequentTopics, body, true); err != nil {
			h.log.Error().Int64("user_id", userID).Err(err).Msg("conversation event: topics update failed")
		}
	}
}
