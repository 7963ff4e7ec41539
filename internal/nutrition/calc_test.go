package nutrition

import (
	"testing"
	"time"
)

func TestBMR(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		height float64
		age    int
		gender string
		want   float64
	}{
		{"male", 80, 178, 30, "male", 10*80 + 6.25*178 - 5*30 + 5},
		{"female", 60, 165, 25, "female", 10*60 + 6.25*165 - 5*25 - 161},
		{"unspecified uses female constant", 60, 165, 25, "", 10*60 + 6.25*165 - 5*25 - 161},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BMR(tt.weight, tt.height, tt.age, tt.gender); got != tt.want {
				t.Errorf("BMR = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTDEE(t *testing.T) {
	if got := TDEE(1600, 3); got != 2480 {
		t.Errorf("moderate TDEE = %v, want 2480", got)
	}
	// unknown level falls back to light activity
	if got := TDEE(1600, 9); got != 2200 {
		t.Errorf("fallback TDEE = %v, want 2200", got)
	}
}

func TestDailyTargets(t *testing.T) {
	got := DailyTargets(2500, GoalLoseWeight)
	if got.Calories != 2000 {
		t.Errorf("calories = %v, want 2000", got.Calories)
	}
	// 30/35/35 split at 4/4/9 kcal per gram
	if got.Protein != 150 || got.Carbs != 175 || got.Fat != 78 {
		t.Errorf("macros = %+v", got)
	}

	if got := DailyTargets(2000, GoalBuildMuscle); got.Calories != 2200 {
		t.Errorf("build muscle calories = %v, want 2200", got.Calories)
	}
	// unknown goal keeps TDEE and the maintain split
	if got := DailyTargets(2000, GoalType(42)); got.Calories != 2000 || got.Carbs != 250 {
		t.Errorf("unknown goal targets = %+v", got)
	}
}

func TestRemainingGoesNegative(t *testing.T) {
	got := Remaining(Macros{Calories: 2000, Protein: 100}, Macros{Calories: 2300, Protein: 60})
	if got.Calories != -300 || got.Protein != 40 {
		t.Errorf("remaining = %+v", got)
	}
}

func TestImpact(t *testing.T) {
	targets := Macros{Calories: 2000, Protein: 100, Carbs: 250, Fat: 65}

	fits := Impact(Macros{Calories: 500, Protein: 30}, targets, targets)
	if !fits.FitsBudget || fits.MealPercentage != 25 || fits.ExceededBy != 0 {
		t.Errorf("fitting meal = %+v", fits)
	}
	if fits.RemainingAfter.Calories != 1500 {
		t.Errorf("remaining after = %+v", fits.RemainingAfter)
	}

	over := Impact(Macros{Calories: 900}, targets, Macros{Calories: 400})
	if over.FitsBudget || over.ExceededBy != 500 {
		t.Errorf("over-budget meal = %+v", over)
	}

	zero := Impact(Macros{Calories: 500}, Macros{}, Macros{})
	if zero.MealPercentage != 0 {
		t.Errorf("zero-target percentage = %v", zero.MealPercentage)
	}
}

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		current  float64
		target   float64
		goal     GoalType
		wantPct  float64
		wantTrnd string
	}{
		{"no movement", 80, 80, 70, GoalLoseWeight, 0, TrendStable},
		{"halfway down", 80, 75, 70, GoalLoseWeight, 50, TrendOnTrack},
		{"moving away while losing", 80, 82, 70, GoalLoseWeight, -20, TrendOffTrack},
		{"moving away while gaining", 60, 58, 65, GoalGainWeight, -40, TrendOffTrack},
		{"overshoot clamps", 80, 68, 70, GoalLoseWeight, 100, TrendOnTrack},
		{"tiny change is stable", 80, 79.6, 70, GoalLoseWeight, 4, TrendStable},
		{"target equals start at target", 80, 80, 80, GoalMaintain, 100, TrendStable},
		{"target equals start off target", 80, 81, 80, GoalMaintain, 0, TrendOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GoalProgress(tt.start, tt.current, tt.target, tt.goal)
			if got.Percentage != tt.wantPct {
				t.Errorf("percentage = %v, want %v", got.Percentage, tt.wantPct)
			}
			if got.Trend != tt.wantTrnd {
				t.Errorf("trend = %q, want %q", got.Trend, tt.wantTrnd)
			}
		})
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if got := Age(time.Date(1996, 5, 1, 0, 0, 0, 0, time.UTC), now); got != 30 {
		t.Errorf("age = %d, want 30", got)
	}
	// birthday later this year
	if got := Age(time.Date(1996, 12, 1, 0, 0, 0, 0, time.UTC), now); got != 29 {
		t.Errorf("age before birthday = %d, want 29", got)
	}
}
