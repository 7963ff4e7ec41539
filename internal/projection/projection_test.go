package projection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// fakeDB serves canned rows so projections can be tested without SQLite.
type fakeDB struct {
	profile   *healthdb.Profile
	allergies []healthdb.Allergy
	diseases  []healthdb.Disease
	goal      *healthdb.Goal
	weights   []healthdb.WeightRecord
	today     *healthdb.DailySummary
	summaries []healthdb.DailySummary
	meals     []healthdb.MealRecord
	sessions  []healthdb.ChatSession
	messages  map[int64][]string
}

func (f *fakeDB) Profile(userID int64) (*healthdb.Profile, error) {
	if f.profile == nil {
		return nil, healthdb.ErrNoProfile
	}
	return f.profile, nil
}
func (f *fakeDB) Allergies(int64) ([]healthdb.Allergy, error)      { return f.allergies, nil }
func (f *fakeDB) ActiveDiseases(int64) ([]healthdb.Disease, error) { return f.diseases, nil }
func (f *fakeDB) ActiveGoal(int64) (*healthdb.Goal, error)         { return f.goal, nil }
func (f *fakeDB) WeightHistory(int64, int) ([]healthdb.WeightRecord, error) {
	return f.weights, nil
}
func (f *fakeDB) DailySummary(int64, string) (*healthdb.DailySummary, error) { return f.today, nil }
func (f *fakeDB) SummariesSince(int64, string) ([]healthdb.DailySummary, error) {
	return f.summaries, nil
}
func (f *fakeDB) CompletedMealsSince(int64, string) ([]healthdb.MealRecord, error) {
	return f.meals, nil
}
func (f *fakeDB) RecentSessions(int64, int) ([]healthdb.ChatSession, error) {
	return f.sessions, nil
}
func (f *fakeDB) SessionUserMessages(sessionID int64, _ int) ([]string, error) {
	return f.messages[sessionID], nil
}

func fullFake() *fakeDB {
	return &fakeDB{
		profile: &healthdb.Profile{
			UserID: 1, Gender: "male", BirthDate: "1996-05-01",
			Height: 178, Weight: 78, ActivityLevel: 3,
		},
		allergies: []healthdb.Allergy{{Name: "peanuts", Severity: 3}},
		diseases:  []healthdb.Disease{{Name: "Type 2 Diabetes", Severity: 2, IsCurrent: true}},
		goal:      &healthdb.Goal{ID: 1, GoalType: 1, StartWeight: 80, TargetWeight: 70, TargetDate: "2026-12-01"},
		weights: []healthdb.WeightRecord{
			{Weight: 80, MeasuredAt: "2026-08-01T08:00:00Z"},
			{Weight: 78, MeasuredAt: "2026-08-20T08:00:00Z"},
		},
		today: &healthdb.DailySummary{Date: "2026-08-31", Calories: 1200, Protein: 80, Carbs: 120, Fat: 40},
		summaries: []healthdb.DailySummary{
			{Date: "2026-08-25", Calories: 1800, Protein: 90, Carbs: 200, Fat: 60},
			{Date: "2026-08-26", Calories: 2000, Protein: 110, Carbs: 220, Fat: 70},
		},
		meals: []healthdb.MealRecord{
			{FoodName: "oatmeal", RecordDate: "2026-08-30", MealType: 1, Calories: 350, HealthGrade: "A"},
			{FoodName: "oatmeal", RecordDate: "2026-08-29", MealType: 1, Calories: 370, HealthGrade: "A"},
			{FoodName: "burger", RecordDate: "2026-08-28", MealType: 2, Calories: 800, HealthGrade: "C"},
		},
		sessions: []healthdb.ChatSession{
			{ID: 10, Topic: "weight loss", StartedAt: "2026-08-30T10:00:00Z"},
			{ID: 11, Topic: "", StartedAt: "2026-08-29T10:00:00Z"},
		},
		messages: map[int64][]string{
			10: {"how do I lose weight safely?"},
			11: {"hello"},
		},
	}
}

func newTestService(t *testing.T, db Database) (*Service, *workspace.FileStore) {
	t.Helper()
	ws := workspace.NewFileStore(t.TempDir(), zerolog.Nop())
	svc := New(db, ws, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	return svc, ws
}

func TestProjectShared(t *testing.T) {
	svc, ws := newTestService(t, fullFake())
	if err := svc.ProjectShared(1); err != nil {
		t.Fatalf("ProjectShared: %v", err)
	}

	doc, err := ws.Read(1, workspace.KindShared)
	if err != nil || doc == nil {
		t.Fatalf("Read: %v, doc=%v", err, doc)
	}
	if doc.UserID() != 1 {
		t.Errorf("user_id = %d", doc.UserID())
	}
	basic, _ := doc.Section(workspace.SectionBasicInfo)
	if !strings.Contains(basic, "- Age: 30") || !strings.Contains(basic, "- Weight: 78.0 kg") {
		t.Errorf("Basic Info:\n%s", basic)
	}
	cond, _ := doc.Section(workspace.SectionHealthConditions)
	if !strings.Contains(cond, "- peanuts (severe)") || !strings.Contains(cond, "Type 2 Diabetes") {
		t.Errorf("Health Conditions:\n%s", cond)
	}
	prefs, _ := doc.Section(workspace.SectionFoodPreferences)
	if !strings.Contains(prefs, "low-sugar diet (Type 2 Diabetes)") || !strings.Contains(prefs, "avoid peanuts") {
		t.Errorf("Food Preferences:\n%s", prefs)
	}
}

func TestProjectSharedNoProfile(t *testing.T) {
	svc, _ := newTestService(t, &fakeDB{})
	if err := svc.ProjectShared(1); !errors.Is(err, healthdb.ErrNoProfile) {
		t.Errorf("err = %v, want ErrNoProfile", err)
	}
}

func TestProjectGoalTracking(t *testing.T) {
	svc, ws := newTestService(t, fullFake())
	if err := svc.ProjectGoalTracking(1); err != nil {
		t.Fatalf("ProjectGoalTracking: %v", err)
	}

	doc, _ := ws.Read(1, workspace.KindGoalTracking)
	if goalSec, _ := doc.Section(SectionActiveGoal); !strings.Contains(goalSec, "Lose weight") {
		t.Errorf("Active Goal:\n%s", goalSec)
	}
	energy, _ := doc.Section(SectionEnergyProfile)
	// BMR for 78kg/178cm/30y male is 1747.5; TDEE at level 3 is 2708.6
	if !strings.Contains(energy, "- BMR: 1747.5 kcal") || !strings.Contains(energy, "- TDEE: 2708.6 kcal") {
		t.Errorf("Energy Profile:\n%s", energy)
	}
	progress, _ := doc.Section(SectionWeightProgress)
	if !strings.Contains(progress, "- Change: -2.0 kg") || !strings.Contains(progress, "(on_track)") {
		t.Errorf("Weight Progress:\n%s", progress)
	}
	today, _ := doc.Section(SectionToday)
	if !strings.Contains(today, "- Consumed: 1200 kcal") {
		t.Errorf("Today:\n%s", today)
	}
}

func TestProjectGoalTrackingWithoutGoal(t *testing.T) {
	db := fullFake()
	db.goal = nil
	svc, ws := newTestService(t, db)
	if err := svc.ProjectGoalTracking(1); err != nil {
		t.Fatalf("ProjectGoalTracking: %v", err)
	}
	doc, _ := ws.Read(1, workspace.KindGoalTracking)
	if sec, _ := doc.Section(SectionActiveGoal); !strings.Contains(sec, "maintenance") {
		t.Errorf("Active Goal:\n%s", sec)
	}
}

func TestProjectNutrition(t *testing.T) {
	svc, ws := newTestService(t, fullFake())
	if err := svc.ProjectNutrition(1); err != nil {
		t.Fatalf("ProjectNutrition: %v", err)
	}

	doc, _ := ws.Read(1, workspace.KindNutrition)
	diet, _ := doc.Section(SectionDietSummary)
	if !strings.Contains(diet, "- Avg calories: 1900.0 kcal") ||
		!strings.Contains(diet, "- Meal regularity: needs improvement") {
		t.Errorf("Diet Summary:\n%s", diet)
	}
	foods, _ := doc.Section(SectionFrequentFoods)
	if !strings.HasPrefix(foods, "- oatmeal: 2 times, avg 360 kcal, grade A") {
		t.Errorf("Frequent Foods:\n%s", foods)
	}
	recent, _ := doc.Section(SectionRecentAnalyses)
	if !strings.Contains(recent, "- 2026-08-30 breakfast: oatmeal, 350 kcal (A)") {
		t.Errorf("Recent Analyses:\n%s", recent)
	}
}

func TestProjectChat(t *testing.T) {
	svc, ws := newTestService(t, fullFake())
	if err := svc.ProjectChat(1); err != nil {
		t.Fatalf("ProjectChat: %v", err)
	}

	doc, _ := ws.Read(1, workspace.KindChat)
	topics, _ := doc.Section(SectionFrequentTopics)
	if !strings.Contains(topics, "- weight loss: 1") || !strings.Contains(topics, "- general: 1") {
		t.Errorf("Frequent Topics:\n%s", topics)
	}
	inter, _ := doc.Section(SectionRecentInteractions)
	if !strings.Contains(inter, "- 2026-08-30 [weight loss] how do I lose weight safely?") {
		t.Errorf("Recent Interactions:\n%s", inter)
	}
}

func TestProjectionIsIdempotent(t *testing.T) {
	svc, ws := newTestService(t, fullFake())
	if err := svc.ProjectAll(1); err != nil {
		t.Fatalf("first ProjectAll: %v", err)
	}
	first, _ := ws.Read(1, workspace.KindShared)
	if err := svc.ProjectAll(1); err != nil {
		t.Fatalf("second ProjectAll: %v", err)
	}
	second, _ := ws.Read(1, workspace.KindShared)
	if first.Raw != second.Raw {
		t.Error("re-projection changed the shared document")
	}
}

// failingStore rejects writes for one kind to exercise partial fan-out.
type failingStore struct {
	workspace.Store
	reject workspace.Kind
}

func (f *failingStore) Write(userID int64, kind workspace.Kind, doc *workspace.Document) error {
	if kind == f.reject {
		return errors.New("disk full")
	}
	return f.Store.Write(userID, kind, doc)
}

func TestProjectAllPartialFailure(t *testing.T) {
	inner := workspace.NewFileStore(t.TempDir(), zerolog.Nop())
	svc := New(fullFake(), &failingStore{Store: inner, reject: workspace.KindShared}, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	err := svc.ProjectAll(1)
	if err == nil {
		t.Fatal("expected an error from the failing shared projection")
	}
	// the other three workspaces must still have been written
	for _, k := range []workspace.Kind{workspace.KindGoalTracking, workspace.KindNutrition, workspace.KindChat} {
		if !inner.Exists(1, k) {
			t.Errorf("%s workspace missing after partial failure", k)
		}
	}
}
