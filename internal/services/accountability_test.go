package services

import (
	"math"
	"testing"
)

func TestCalculateAccountability(t *testing.T) {
	w := DefaultAccountabilityWeights()

	cases := []struct {
		name         string
		checkins     int
		goals        int
		responseRate float64
		streak       int
		want         float64
	}{
		{name: "all_maxed", checkins: 7, goals: 2, responseRate: 1.0, streak: 15, want: 1.00},
		{name: "all_zero", want: 0.00},
		{name: "checkins_only_full", checkins: 7, want: 0.40},
		{name: "goals_only_full", goals: 2, want: 0.25},
		{name: "response_only_full", responseRate: 1.0, want: 0.20},
		{name: "streak_only_full", streak: 15, want: 0.15},
		{name: "half_checkins", checkins: 7, goals: 1, want: 0.40 + 0.125},
		{name: "counters_saturate", checkins: 70, goals: 20, responseRate: 1.0, streak: 150, want: 1.00},
		{name: "negative_counters_clamp", checkins: -5, goals: -1, responseRate: -0.5, streak: -2, want: 0.00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateAccountability(w, tc.checkins, tc.goals, tc.responseRate, tc.streak)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("CalculateAccountability=%f, want %f", got, tc.want)
			}
		})
	}
}

func TestCalculateAccountabilityMonotonic(t *testing.T) {
	w := DefaultAccountabilityWeights()
	base := CalculateAccountability(w, 3, 1, 0.5, 5)

	if CalculateAccountability(w, 4, 1, 0.5, 5) <= base {
		t.Fatal("more checkins should never lower the score")
	}
	if CalculateAccountability(w, 3, 2, 0.5, 5) <= base {
		t.Fatal("more goals should never lower the score")
	}
	if CalculateAccountability(w, 3, 1, 0.6, 5) <= base {
		t.Fatal("a higher response rate should never lower the score")
	}
	if CalculateAccountability(w, 3, 1, 0.5, 6) <= base {
		t.Fatal("a longer streak should never lower the score")
	}
}

func TestAccountabilityBand(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{score: 1.00, want: BandExcellent},
		{score: 0.85, want: BandExcellent},
		{score: 0.84, want: BandGood},
		{score: 0.70, want: BandGood},
		{score: 0.69, want: BandFair},
		{score: 0.50, want: BandFair},
		{score: 0.49, want: BandNeedsImprovement},
		{score: 0.30, want: BandNeedsImprovement},
		{score: 0.29, want: BandPoor},
		{score: 0.00, want: BandPoor},
	}

	for _, tc := range cases {
		if got := AccountabilityBand(tc.score); got != tc.want {
			t.Fatalf("AccountabilityBand(%.2f)=%q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestStreakFlags(t *testing.T) {
	if IsOnStreak(2) || !IsOnStreak(3) {
		t.Fatal("streak flag boundary should be 3 days")
	}
	if IsOnLongStreak(6) || !IsOnLongStreak(7) {
		t.Fatal("long streak flag boundary should be 7 days")
	}
}
