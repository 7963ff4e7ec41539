package events

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/projection"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// fakeProjector counts projection calls and can be told to fail.
type fakeProjector struct {
	shared int
	goal   int
	fail   bool
}

func (f *fakeProjector) ProjectShared(int64) error {
	f.shared++
	if f.fail {
		return errors.New("db unreachable")
	}
	return nil
}

func (f *fakeProjector) ProjectGoalTracking(int64) error {
	f.goal++
	if f.fail {
		return errors.New("db unreachable")
	}
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *workspace.FileStore, *fakeProjector) {
	t.Helper()
	ws := workspace.NewFileStore(t.TempDir(), zerolog.Nop())
	proj := &fakeProjector{}
	h := New(ws, proj, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC) }
	return h, ws, proj
}

func TestAnalysisRecorded(t *testing.T) {
	h, ws, proj := newTestHandler(t)

	h.AnalysisRecorded(1, MealAnalysis{
		MealType: "lunch", Foods: []string{"rice", "chicken"}, Calories: 650, HealthGrade: "B",
	})

	doc, _ := ws.Read(1, workspace.KindNutrition)
	body, _ := doc.Section(projection.SectionRecentAnalyses)
	if body != "- 2026-08-31 lunch: rice, chicken, 650 kcal (B)" {
		t.Errorf("Recent Analyses = %q", body)
	}
	if proj.goal != 1 {
		t.Errorf("goal projections = %d, want 1", proj.goal)
	}

	// second analysis appends rather than replacing
	h.AnalysisRecorded(1, MealAnalysis{Calories: 200})
	doc, _ = ws.Read(1, workspace.KindNutrition)
	body, _ = doc.Section(projection.SectionRecentAnalyses)
	if got := strings.Count(body, "\n"); got != 1 {
		t.Errorf("expected two lines, got:\n%s", body)
	}
	if !strings.Contains(body, "meal: unidentified, 200 kcal (B)") {
		t.Errorf("defaults not applied:\n%s", body)
	}
}

func TestWeightRecorded(t *testing.T) {
	h, ws, proj := newTestHandler(t)

	h.WeightRecorded(2, 77.5, time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC))

	doc, _ := ws.Read(2, workspace.KindGoalTracking)
	body, _ := doc.Section(projection.SectionWeightProgress)
	if body != "- Current: 77.5 kg (2026-08-31)" {
		t.Errorf("Weight Progress = %q", body)
	}
	if proj.goal != 1 || proj.shared != 1 {
		t.Errorf("projections = goal %d / shared %d, want 1 / 1", proj.goal, proj.shared)
	}
}

func TestProfileUpdatedCalcFields(t *testing.T) {
	h, _, proj := newTestHandler(t)

	h.ProfileUpdated(1, []string{"nickname"})
	if proj.shared != 1 || proj.goal != 0 {
		t.Errorf("cosmetic change: shared %d / goal %d, want 1 / 0", proj.shared, proj.goal)
	}

	h.ProfileUpdated(1, []string{"nickname", "weight"})
	if proj.shared != 2 || proj.goal != 1 {
		t.Errorf("weight change: shared %d / goal %d, want 2 / 1", proj.shared, proj.goal)
	}
}

func TestConversationEnded(t *testing.T) {
	h, ws, _ := newTestHandler(t)

	h.ConversationEnded(3, SessionSummary{
		Topic:       "meal planning",
		KeyQuestion: "what should I eat before a run?",
	})
	doc, _ := ws.Read(3, workspace.KindChat)
	body, _ := doc.Section(projection.SectionRecentInteractions)
	if body != "- 2026-08-31 [meal planning] what should I eat before a run?" {
		t.Errorf("Recent Interactions = %q", body)
	}
	if _, ok := doc.Section(projection.SectionFrequentTopics); ok {
		t.Error("topics section written without topics in the summary")
	}

	h.ConversationEnded(3, SessionSummary{Topics: []string{"running", "meal planning"}})
	doc, _ = ws.Read(3, workspace.KindChat)
	topics, _ := doc.Section(projection.SectionFrequentTopics)
	if topics != "- running\n- meal planning" {
		t.Errorf("Frequent Topics = %q", topics)
	}
}

func TestHandlersSwallowFailures(t *testing.T) {
	h, _, proj := newTestHandler(t)
	proj.fail = true

	// none of these may panic or surface the projector error
	h.AnalysisRecorded(1, MealAnalysis{Calories: 100})
	h.WeightRecorded(1, 80, time.Now())
	h.GoalChanged(1)
	h.ProfileUpdated(1, []string{"weight"})
	h.AllergyUpdated(1)
	h.DiseaseUpdated(1)

	if proj.shared == 0 || proj.goal == 0 {
		t.Error("projections were not attempted")
	}
}
