// Package nutrition holds the pure calculation functions for energy
// budgets and goal progress: BMR (Mifflin-St Jeor), TDEE, goal-adjusted
// daily targets, remaining budget, meal impact, and progress toward a
// weight goal. Everything here is deterministic and side-effect free.
package nutrition

import (
	"math"
	"time"
)

// GoalType classifies a health goal.
type GoalType int

const (
	GoalLoseWeight  GoalType = 1
	GoalGainWeight  GoalType = 2
	GoalMaintain    GoalType = 3
	GoalBuildMuscle GoalType = 4
	GoalLoseFat     GoalType = 5
)

// Label returns a short human-readable goal name for document rendering.
func (g GoalType) Label() string {
	switch g {
	case GoalLoseWeight:
		return "Lose weight"
	case GoalGainWeight:
		return "Gain weight"
	case GoalMaintain:
		return "Maintain weight"
	case GoalBuildMuscle:
		return "Build muscle"
	case GoalLoseFat:
		return "Lose fat"
	}
	return "Unknown goal"
}

// activityFactors maps activity level 1 (sedentary) through 5 (very
// active) to its TDEE multiplier.
var activityFactors = map[int]float64{
	1: 1.2,
	2: 1.375,
	3: 1.55,
	4: 1.725,
	5: 1.9,
}

// calorieAdjustments is the daily calorie delta applied to TDEE per goal.
var calorieAdjustments = map[GoalType]float64{
	GoalLoseWeight:  -500,
	GoalGainWeight:  300,
	GoalMaintain:    0,
	GoalBuildMuscle: 200,
	GoalLoseFat:     -400,
}

type macroRatio struct {
	protein, carbs, fat float64
}

var macroRatios = map[GoalType]macroRatio{
	GoalLoseWeight:  {0.30, 0.35, 0.35},
	GoalGainWeight:  {0.25, 0.50, 0.25},
	GoalMaintain:    {0.25, 0.50, 0.25},
	GoalBuildMuscle: {0.35, 0.40, 0.25},
	GoalLoseFat:     {0.30, 0.35, 0.35},
}

// Macros is a set of energy and macronutrient amounts. Calories in kcal,
// macros in grams.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Age returns full years between birth and now.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// BMR computes basal metabolic rate via Mifflin-St Jeor. Weight in kg,
// height in cm. The female constant is the default for any gender other
// than "male".
func BMR(weightKg, heightCm float64, age int, gender string) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}
	return round1(bmr)
}

// TDEE scales BMR by the activity factor. Unknown levels fall back to
// light activity.
func TDEE(bmr float64, activityLevel int) float64 {
	factor, ok := activityFactors[activityLevel]
	if !ok {
		factor = activityFactors[2]
	}
	return round1(bmr * factor)
}

// DailyTargets derives the goal-adjusted calorie target and splits it into
// macro targets (protein and carbs at 4 kcal/g, fat at 9 kcal/g). Unknown
// goals use the maintain split.
func DailyTargets(tdee float64, goal GoalType) Macros {
	target := tdee + calorieAdjustments[goal]
	ratio, ok := macroRatios[goal]
	if !ok {
		ratio = macroRatios[GoalMaintain]
	}
	return Macros{
		Calories: math.Round(target),
		Protein:  math.Round(target * ratio.protein / 4),
		Carbs:    math.Round(target * ratio.carbs / 4),
		Fat:      math.Round(target * ratio.fat / 9),
	}
}

// Remaining subtracts consumed amounts from targets. Values go negative
// when the budget is exceeded.
func Remaining(targets, consumed Macros) Macros {
	return Macros{
		Calories: math.Round(targets.Calories - consumed.Calories),
		Protein:  math.Round(targets.Protein - consumed.Protein),
		Carbs:    math.Round(targets.Carbs - consumed.Carbs),
		Fat:      math.Round(targets.Fat - consumed.Fat),
	}
}

// MealImpact describes how one meal lands against the daily budget.
type MealImpact struct {
	MealPercentage float64 `json:"meal_percentage"`
	FitsBudget     bool    `json:"fits_budget"`
	RemainingAfter Macros  `json:"remaining_after"`
	ExceededBy     float64 `json:"exceeded_by"`
}

// Impact computes the effect of a meal given the daily targets and the
// budget remaining before the meal.
func Impact(meal, targets, remainingBefore Macros) MealImpact {
	after := Remaining(remainingBefore, meal)

	var pct float64
	if targets.Calories > 0 {
		pct = round1(meal.Calories / targets.Calories * 100)
	}

	impact := MealImpact{
		MealPercentage: pct,
		FitsBudget:     after.Calories >= 0,
		RemainingAfter: after,
	}
	if !impact.FitsBudget {
		impact.ExceededBy = -after.Calories
	}
	return impact
}

// Progress describes movement toward a weight goal.
type Progress struct {
	Change     float64 `json:"change_kg"`
	Remaining  float64 `json:"remaining_kg"`
	Percentage float64 `json:"percentage"`
	Trend      string  `json:"trend"`
}

// Progress trend values.
const (
	TrendStable   = "stable"
	TrendOnTrack  = "on_track"
	TrendOffTrack = "off_track"
)

// GoalProgress computes progress from start weight toward target weight.
// Percentage is |change| over |target-start|, clamped to [0, 100], and
// negated when the change moves away from the goal direction. Trend is
// stable under half a kilo of movement, on_track when the sign of the
// change matches the goal direction, off_track otherwise.
func GoalProgress(startKg, currentKg, targetKg float64, goal GoalType) Progress {
	change := currentKg - startKg
	needed := math.Abs(targetKg - startKg)

	var pct float64
	switch {
	case needed > 0:
		pct = math.Min(math.Abs(change)/needed*100, 100)
		if !movesToward(change, goal) && change != 0 {
			pct = -pct
		}
	case currentKg == targetKg:
		pct = 100
	}

	trend := TrendOffTrack
	switch {
	case math.Abs(change) < 0.5:
		trend = TrendStable
	case movesToward(change, goal):
		trend = TrendOnTrack
	}

	return Progress{
		Change:     round1(change),
		Remaining:  round1(currentKg - targetKg),
		Percentage: round1(pct),
		Trend:      trend,
	}
}

// movesToward reports whether a weight change has the sign the goal wants.
// Maintain and build-muscle goals treat any change as forward movement.
func movesToward(change float64, goal GoalType) bool {
	switch goal {
	case GoalLoseWeight, GoalLoseFat:
		return change < 0
	case GoalGainWeight:
		return change > 0
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
