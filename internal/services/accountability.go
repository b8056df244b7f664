package services

// AccountabilityWeights and caps for the blended accountability score. The
// caps normalize raw counters into [0,1] before weighting.
type AccountabilityWeights struct {
	Checkins     float64
	Goals        float64
	ResponseRate float64
	Streak       float64

	CheckinCap int
	GoalCap    int
	StreakCap  int
}

func DefaultAccountabilityWeights() AccountabilityWeights {
	return AccountabilityWeights{
		Checkins:     0.40,
		Goals:        0.25,
		ResponseRate: 0.20,
		Streak:       0.15,
		CheckinCap:   7,
		GoalCap:      2,
		StreakCap:    15,
	}
}

// Accountability score bands, highest first.
const (
	BandExcellent        = "Excellent"
	BandGood             = "Good"
	BandFair             = "Fair"
	BandNeedsImprovement = "Needs Improvement"
	BandPoor             = "Poor"
)

// CalculateAccountability blends weekly check-ins, goals achieved, response
// rate and streak length into a single [0,1] score. Each counter saturates at
// its cap so one dimension cannot carry the score alone.
func CalculateAccountability(w AccountabilityWeights, checkins, goals int, responseRate float64, streakDays int) float64 {
	checkinComponent := ratioCapped(checkins, w.CheckinCap)
	goalComponent := ratioCapped(goals, w.GoalCap)
	streakComponent := ratioCapped(streakDays, w.StreakCap)

	score := w.Checkins*checkinComponent +
		w.Goals*goalComponent +
		w.ResponseRate*clamp01(responseRate) +
		w.Streak*streakComponent
	return clamp01(score)
}

func ratioCapped(n, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n > limit {
		n = limit
	}
	return float64(n) / float64(limit)
}

// AccountabilityBand names the qualitative band a score falls into.
func AccountabilityBand(score float64) string {
	switch {
	case score >= 0.85:
		return BandExcellent
	case score >= 0.70:
		return BandGood
	case score >= 0.50:
		return BandFair
	case score >= 0.30:
		return BandNeedsImprovement
	default:
		return BandPoor
	}
}

func IsOnStreak(streakDays int) bool     { return streakDays >= 3 }
func IsOnLongStreak(streakDays int) bool { return streakDays >= 7 }
