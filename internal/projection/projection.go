// Package projection regenerates workspace documents from the relational
// source of truth. Each Project* method reads the database, renders a
// full document, and overwrites the corresponding workspace file. The
// database is never written.
package projection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nutrimind/nutrimind/internal/healthdb"
	"github.com/nutrimind/nutrimind/internal/nutrition"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// Section titles owned by each workspace kind. Other components address
// sections through these constants, never with literal strings.
const (
	SectionActiveGoal     = "Active Goal"
	SectionEnergyProfile  = "Energy Profile"
	SectionDailyTargets   = "Daily Targets"
	SectionWeightProgress = "Weight Progress"
	SectionToday          = "Today"

	SectionDietSummary    = "Diet Summary"
	SectionFrequentFoods  = "Frequent Foods"
	SectionRecentAnalyses = "Recent Analyses"

	SectionFrequentTopics     = "Frequent Topics"
	SectionRecentInteractions = "Recent Interactions"
)

// Database is the read-only slice of healthdb the projection needs.
type Database interface {
	Profile(userID int64) (*healthdb.Profile, error)
	Allergies(userID int64) ([]healthdb.Allergy, error)
	ActiveDiseases(userID int64) ([]healthdb.Disease, error)
	ActiveGoal(userID int64) (*healthdb.Goal, error)
	WeightHistory(userID int64, limit int) ([]healthdb.WeightRecord, error)
	DailySummary(userID int64, date string) (*healthdb.DailySummary, error)
	SummariesSince(userID int64, since string) ([]healthdb.DailySummary, error)
	CompletedMealsSince(userID int64, since string) ([]healthdb.MealRecord, error)
	RecentSessions(userID int64, limit int) ([]healthdb.ChatSession, error)
	SessionUserMessages(sessionID int64, limit int) ([]string, error)
}

// Service projects database state into workspace documents.
type Service struct {
	db  Database
	ws  workspace.Store
	log zerolog.Logger
	now func() time.Time
}

// New creates a projection service.
func New(db Database, ws workspace.Store, log zerolog.Logger) *Service {
	return &Service{db: db, ws: ws, log: log, now: time.Now}
}

const dateFormat = "2006-01-02"

// ─── Shared workspace ────────────────────────────────────────────────────────

// ProjectShared rebuilds the shared workspace from profile, allergies, and
// diseases. A missing profile surfaces as healthdb.ErrNoProfile.
func (s *Service) ProjectShared(userID int64) error {
	profile, err := s.db.Profile(userID)
	if err != nil {
		return fmt.Errorf("projection: shared for user %d: %w", userID, err)
	}
	allergies, err := s.db.Allergies(userID)
	if err != nil {
		return fmt.Errorf("projection: shared for user %d: %w", userID, err)
	}
	diseases, err := s.db.ActiveDiseases(userID)
	if err != nil {
		return fmt.Errorf("projection: shared for user %d: %w", userID, err)
	}

	doc := workspace.NewDocument(userID, s.now())
	doc.Preamble = "# Shared Memory"
	doc.UpdateSection(workspace.SectionBasicInfo, renderBasicInfo(profile, s.now()), true)
	doc.UpdateSection(workspace.SectionHealthConditions, renderHealthConditions(allergies, diseases), true)
	doc.UpdateSection(workspace.SectionFoodPreferences, renderFoodPreferences(allergies, diseases), true)
	doc.UpdateSection(workspace.SectionBehaviorPatterns, "- Meal logging: not yet established", true)

	if err := s.ws.Write(userID, workspace.KindShared, doc); err != nil {
		return fmt.Errorf("projection: shared for user %d: %w", userID, err)
	}
	s.log.Info().Int64("user_id", userID).Msg("shared workspace projected")
	return nil
}

func renderBasicInfo(p *healthdb.Profile, now time.Time) string {
	age := 30
	if birth, err := time.Parse(dateFormat, p.BirthDate); err == nil {
		age = nutrition.Age(birth, now)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- Gender: %s\n", p.Gender)
	fmt.Fprintf(&b, "- Age: %d\n", age)
	fmt.Fprintf(&b, "- Height: %.1f cm\n", p.Height)
	fmt.Fprintf(&b, "- Weight: %.1f kg\n", p.Weight)
	fmt.Fprintf(&b, "- Activity level: %d (%s)", p.ActivityLevel, activityLabel(p.ActivityLevel))
	return b.String()
}

func renderHealthConditions(allergies []healthdb.Allergy, diseases []healthdb.Disease) string {
	var b strings.Builder
	b.WriteString("### Allergies\n")
	if len(allergies) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, a := range allergies {
		fmt.Fprintf(&b, "- %s (%s)\n", a.Name, severityLabel(a.Severity))
	}
	b.WriteString("\n### Diseases\n")
	if len(diseases) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, d := range diseases {
		status := "active"
		if d.Severity == 1 {
			status = "controlled"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", d.Name, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFoodPreferences(allergies []healthdb.Allergy, diseases []healthdb.Disease) string {
	var b strings.Builder
	b.WriteString("### Liked Foods\n- none recorded\n\n")
	b.WriteString("### Disliked Foods\n- none recorded\n\n")
	b.WriteString("### Dietary Restrictions\n")
	restrictions := dietaryRestrictions(diseases, allergies)
	if len(restrictions) == 0 {
		b.WriteString("- none recorded")
	} else {
		b.WriteString("- " + strings.Join(restrictions, "\n- "))
	}
	return b.String()
}

// diseaseRestrictions maps condition keywords to the diet they imply.
var diseaseRestrictions = []struct{ keyword, diet string }{
	{"diabetes", "low-sugar diet"},
	{"hypertension", "low-sodium diet"},
	{"hyperlipidemia", "low-fat diet"},
	{"high cholesterol", "low-fat diet"},
	{"gout", "low-purine diet"},
	{"kidney", "low-protein diet"},
}

func dietaryRestrictions(diseases []healthdb.Disease, allergies []healthdb.Allergy) []string {
	var out []string
	for _, d := range diseases {
		lower := strings.ToLower(d.Name)
		for _, r := range diseaseRestrictions {
			if strings.Contains(lower, r.keyword) {
				out = append(out, fmt.Sprintf("%s (%s)", r.diet, d.Name))
			}
		}
	}
	for _, a := range allergies {
		out = append(out, "avoid "+a.Name)
	}
	return out
}

// ─── Goal tracking workspace ─────────────────────────────────────────────────

// ProjectGoalTracking rebuilds the goal workspace: active goal, energy
// profile, daily targets, weight progress, and today's consumption. With
// no active goal the maintenance budget is used.
func (s *Service) ProjectGoalTracking(userID int64) error {
	profile, err := s.db.Profile(userID)
	if err != nil {
		return fmt.Errorf("projection: goal tracking for user %d: %w", userID, err)
	}
	goal, err := s.db.ActiveGoal(userID)
	if err != nil {
		return fmt.Errorf("projection: goal tracking for user %d: %w", userID, err)
	}
	history, err := s.db.WeightHistory(userID, 100)
	if err != nil {
		return fmt.Errorf("projection: goal tracking for user %d: %w", userID, err)
	}

	now := s.now()
	age := 30
	if birth, err := time.Parse(dateFormat, profile.BirthDate); err == nil {
		age = nutrition.Age(birth, now)
	}
	bmr := nutrition.BMR(profile.Weight, profile.Height, age, profile.Gender)
	tdee := nutrition.TDEE(bmr, profile.ActivityLevel)

	goalType := nutrition.GoalMaintain
	if goal != nil {
		goalType = nutrition.GoalType(goal.GoalType)
	}
	targets := nutrition.DailyTargets(tdee, goalType)

	summary, err := s.db.DailySummary(userID, now.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("projection: goal tracking for user %d: %w", userID, err)
	}

	doc := workspace.NewDocument(userID, now)
	doc.Preamble = "# Goal Tracking"
	doc.UpdateSection(SectionActiveGoal, renderActiveGoal(goal), true)
	doc.UpdateSection(SectionEnergyProfile, renderEnergyProfile(bmr, tdee, profile.ActivityLevel), true)
	doc.UpdateSection(SectionDailyTargets, renderTargets(targets), true)
	doc.UpdateSection(SectionWeightProgress, renderWeightProgress(goal, history), true)
	doc.UpdateSection(SectionToday, renderToday(targets, summary), true)

	if err := s.ws.Write(userID, workspace.KindGoalTracking, doc); err != nil {
		return fmt.Errorf("projection: goal tracking for user %d: %w", userID, err)
	}
	s.log.Info().Int64("user_id", userID).Msg("goal workspace projected")
	return nil
}

func renderActiveGoal(goal *healthdb.Goal) string {
	if goal == nil {
		return "- No active goal; using maintenance targets"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- Goal: %s\n", nutrition.GoalType(goal.GoalType).Label())
	fmt.Fprintf(&b, "- Target weight: %.1f kg\n", goal.TargetWeight)
	if goal.TargetDate != "" {
		fmt.Fprintf(&b, "- Target date: %s\n", goal.TargetDate)
	}
	b.WriteString("- Status: in progress")
	return b.String()
}

func renderEnergyProfile(bmr, tdee float64, activityLevel int) string {
	return fmt.Sprintf("- BMR: %.1f kcal\n- TDEE: %.1f kcal\n- Activity level: %d (%s)",
		bmr, tdee, activityLevel, activityLabel(activityLevel))
}

func renderTargets(t nutrition.Macros) string {
	return fmt.Sprintf("- Calories: %.0f kcal\n- Protein: %.0f g\n- Carbs: %.0f g\n- Fat: %.0f g",
		t.Calories, t.Protein, t.Carbs, t.Fat)
}

func renderWeightProgress(goal *healthdb.Goal, history []healthdb.WeightRecord) string {
	if len(history) == 0 {
		return "- No weight records yet"
	}
	first, last := history[0], history[len(history)-1]
	start := first.Weight
	if goal != nil && goal.StartWeight > 0 {
		start = goal.StartWeight
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Start: %.1f kg\n", start)
	fmt.Fprintf(&b, "- Current: %.1f kg (%s)\n", last.Weight, shortDate(last.MeasuredAt))
	fmt.Fprintf(&b, "- Change: %+.1f kg", last.Weight-start)
	if goal != nil && goal.TargetWeight > 0 {
		p := nutrition.GoalProgress(start, last.Weight, goal.TargetWeight, nutrition.GoalType(goal.GoalType))
		fmt.Fprintf(&b, "\n- Progress: %.1f%% (%s)", p.Percentage, p.Trend)
	}
	return b.String()
}

func renderToday(targets nutrition.Macros, summary *healthdb.DailySummary) string {
	consumed := nutrition.Macros{}
	if summary != nil {
		consumed = nutrition.Macros{
			Calories: summary.Calories,
			Protein:  summary.Protein,
			Carbs:    summary.Carbs,
			Fat:      summary.Fat,
		}
	}
	remaining := nutrition.Remaining(targets, consumed)
	return fmt.Sprintf(
		"- Consumed: %.0f kcal (P %.0f g / C %.0f g / F %.0f g)\n- Remaining: %.0f kcal (P %.0f g / C %.0f g / F %.0f g)",
		consumed.Calories, consumed.Protein, consumed.Carbs, consumed.Fat,
		remaining.Calories, remaining.Protein, remaining.Carbs, remaining.Fat)
}

// ─── Nutrition workspace ─────────────────────────────────────────────────────

// ProjectNutrition rebuilds the nutrition workspace: 7-day intake averages,
// 30-day food frequency, and the latest analyses.
func (s *Service) ProjectNutrition(userID int64) error {
	now := s.now()
	summaries, err := s.db.SummariesSince(userID, now.AddDate(0, 0, -7).Format(dateFormat))
	if err != nil {
		return fmt.Errorf("projection: nutrition for user %d: %w", userID, err)
	}
	meals, err := s.db.CompletedMealsSince(userID, now.AddDate(0, 0, -30).Format(dateFormat))
	if err != nil {
		return fmt.Errorf("projection: nutrition for user %d: %w", userID, err)
	}

	doc := workspace.NewDocument(userID, now)
	doc.Preamble = "# Nutrition Memory"
	doc.UpdateSection(SectionDietSummary, renderDietSummary(summaries), true)
	doc.UpdateSection(SectionFrequentFoods, renderFrequentFoods(meals), true)
	doc.UpdateSection(SectionRecentAnalyses, renderRecentAnalyses(meals), true)

	if err := s.ws.Write(userID, workspace.KindNutrition, doc); err != nil {
		return fmt.Errorf("projection: nutrition for user %d: %w", userID, err)
	}
	s.log.Info().Int64("user_id", userID).Msg("nutrition workspace projected")
	return nil
}

func renderDietSummary(summaries []healthdb.DailySummary) string {
	if len(summaries) == 0 {
		return "- No intake logged in the last 7 days"
	}
	var cal, protein, carbs, fat float64
	for _, d := range summaries {
		cal += d.Calories
		protein += d.Protein
		carbs += d.Carbs
		fat += d.Fat
	}
	n := float64(len(summaries))
	regularity := "needs improvement"
	if len(summaries) >= 5 {
		regularity = "good"
	}
	return fmt.Sprintf(
		"- Period: last 7 days (%d logged)\n- Avg calories: %.1f kcal\n- Avg protein: %.1f g\n- Avg carbs: %.1f g\n- Avg fat: %.1f g\n- Meal regularity: %s",
		len(summaries), cal/n, protein/n, carbs/n, fat/n, regularity)
}

func renderFrequentFoods(meals []healthdb.MealRecord) string {
	type foodStats struct {
		count    int
		calories float64
		grades   map[string]int
	}
	stats := map[string]*foodStats{}
	var order []string
	for _, m := range meals {
		st, ok := stats[m.FoodName]
		if !ok {
			st = &foodStats{grades: map[string]int{}}
			stats[m.FoodName] = st
			order = append(order, m.FoodName)
		}
		st.count++
		st.calories += m.Calories
		if m.HealthGrade != "" {
			st.grades[m.HealthGrade]++
		}
	}
	if len(order) == 0 {
		return "- No completed analyses in the last 30 days"
	}

	// by frequency, first-seen order breaking ties
	sort.SliceStable(order, func(i, j int) bool {
		return stats[order[i]].count > stats[order[j]].count
	})
	if len(order) > 10 {
		order = order[:10]
	}

	var b strings.Builder
	for i, name := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		st := stats[name]
		fmt.Fprintf(&b, "- %s: %d times, avg %.0f kcal, grade %s",
			name, st.count, st.calories/float64(st.count), majorityGrade(st.grades))
	}
	return b.String()
}

// majorityGrade picks the most frequent health grade, defaulting to B.
func majorityGrade(grades map[string]int) string {
	best, bestN := "B", 0
	keys := make([]string, 0, len(grades))
	for g := range grades {
		keys = append(keys, g)
	}
	sort.Strings(keys)
	for _, g := range keys {
		if grades[g] > bestN {
			best, bestN = g, grades[g]
		}
	}
	return best
}

func renderRecentAnalyses(meals []healthdb.MealRecord) string {
	if len(meals) == 0 {
		return "- No completed analyses yet"
	}
	if len(meals) > 5 {
		meals = meals[:5]
	}
	var b strings.Builder
	for i, m := range meals {
		if i > 0 {
			b.WriteString("\n")
		}
		grade := m.HealthGrade
		if grade == "" {
			grade = "B"
		}
		fmt.Fprintf(&b, "- %s %s: %s, %.0f kcal (%s)",
			m.RecordDate, mealTypeLabel(m.MealType), m.FoodName, m.Calories, grade)
	}
	return b.String()
}

// ─── Chat workspace ──────────────────────────────────────────────────────────

// ProjectChat rebuilds the chat workspace from the last ten sessions:
// topic frequencies plus up to five interaction summaries.
func (s *Service) ProjectChat(userID int64) error {
	sessions, err := s.db.RecentSessions(userID, 10)
	if err != nil {
		return fmt.Errorf("projection: chat for user %d: %w", userID, err)
	}

	topicCounts := map[string]int{}
	var topicOrder []string
	var interactions []string
	for _, sess := range sessions {
		msgs, err := s.db.SessionUserMessages(sess.ID, 3)
		if err != nil {
			return fmt.Errorf("projection: chat for user %d: %w", userID, err)
		}
		if len(msgs) == 0 {
			continue
		}
		topic := sess.Topic
		if topic == "" {
			topic = "general"
		}
		if _, seen := topicCounts[topic]; !seen {
			topicOrder = append(topicOrder, topic)
		}
		topicCounts[topic]++
		if len(interactions) < 5 {
			interactions = append(interactions, fmt.Sprintf("- %s [%s] %s",
				shortDate(sess.StartedAt), topic, truncate(msgs[0], 100)))
		}
	}

	doc := workspace.NewDocument(userID, s.now())
	doc.Preamble = "# Chat Memory"
	doc.UpdateSection(SectionFrequentTopics, renderTopics(topicOrder, topicCounts), true)
	doc.UpdateSection(SectionRecentInteractions, renderInteractions(interactions), true)

	if err := s.ws.Write(userID, workspace.KindChat, doc); err != nil {
		return fmt.Errorf("projection: chat for user %d: %w", userID, err)
	}
	s.log.Info().Int64("user_id", userID).Msg("chat workspace projected")
	return nil
}

func renderTopics(order []string, counts map[string]int) string {
	if len(order) == 0 {
		return "- No conversations yet"
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 5 {
		order = order[:5]
	}
	var b strings.Builder
	for i, topic := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %d", topic, counts[topic])
	}
	return b.String()
}

func renderInteractions(interactions []string) string {
	if len(interactions) == 0 {
		return "- No interactions recorded"
	}
	return strings.Join(interactions, "\n")
}

// ─── Full fan-out ────────────────────────────────────────────────────────────

// ProjectAll refreshes all four workspaces. The projections run
// independently so one failure never blocks the others; the first error
// is returned after every projection has finished.
func (s *Service) ProjectAll(userID int64) error {
	var g errgroup.Group
	g.Go(func() error { return s.ProjectShared(userID) })
	g.Go(func() error { return s.ProjectGoalTracking(userID) })
	g.Go(func() error { return s.ProjectNutrition(userID) })
	g.Go(func() error { return s.ProjectChat(userID) })

	if err := g.Wait(); err != nil {
		s.log.Warn().Int64("user_id", userID).Err(err).Msg("partial projection failure")
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("full projection completed")
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func activityLabel(level int) string {
	switch level {
	case 1:
		return "sedentary"
	case 2:
		return "light"
	case 3:
		return "moderate"
	case 4:
		return "active"
	case 5:
		return "very active"
	}
	return "light"
}

func severityLabel(severity int) string {
	switch severity {
	case 3:
		return "severe"
	case 2:
		return "moderate"
	}
	return "mild"
}

func mealTypeLabel(mealType int) string {
	switch mealType {
	case 1:
		return "breakfast"
	case 2:
		return "lunch"
	case 3:
		return "dinner"
	case 4:
		return "snack"
	case 5:
		return "late-night snack"
	}
	return "meal"
}

// shortDate reduces a timestamp to its date part.
func shortDate(ts string) string {
	if len(ts) >= len(dateFormat) {
		return ts[:len(dateFormat)]
	}
	return ts
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
