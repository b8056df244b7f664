package services

import (
	"encoding/json"
	"math"
	"time"

	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/types"
)

// ScoreWeights are the relative weights of the four compatibility dimensions.
// They are normalized at scoring time, so any positive values work.
type ScoreWeights struct {
	Timezone           float64
	FocusArea          float64
	CommunicationStyle float64
	Availability       float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Timezone:           0.30,
		FocusArea:          0.30,
		CommunicationStyle: 0.15,
		Availability:       0.25,
	}
}

// Candidate bundles everything the scorer reads about one user.
type Candidate struct {
	Profile     *types.UserProfile
	Preferences *types.MatchingPreferences
}

type ScoreBreakdown struct {
	Timezone           float64 `json:"timezone"`
	FocusArea          float64 `json:"focus_area"`
	CommunicationStyle float64 `json:"communication_style"`
	Availability       float64 `json:"availability"`
}

type CompatibilityScore struct {
	Overall   float64        `json:"overall"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Scorer computes pairwise compatibility. It is a pure value: no stores, no
// clocks beyond timezone-offset resolution, symmetric in its two arguments.
type Scorer struct {
	weights ScoreWeights
}

func NewScorer(weights ScoreWeights) *Scorer {
	total := weights.Timezone + weights.FocusArea + weights.CommunicationStyle + weights.Availability
	if total <= 0 {
		weights = DefaultScoreWeights()
		total = weights.Timezone + weights.FocusArea + weights.CommunicationStyle + weights.Availability
	}
	weights.Timezone /= total
	weights.FocusArea /= total
	weights.CommunicationStyle /= total
	weights.Availability /= total
	return &Scorer{weights: weights}
}

func (s *Scorer) Score(a, b Candidate) CompatibilityScore {
	breakdown := ScoreBreakdown{
		Timezone:           timezoneScore(profileTimezone(a), profileTimezone(b)),
		FocusArea:          focusAreaScore(focusAreas(a), focusAreas(b)),
		CommunicationStyle: communicationScore(communicationStyle(a), communicationStyle(b)),
		Availability:       availabilityScore(availability(a), availability(b)),
	}
	overall := s.weights.Timezone*breakdown.Timezone +
		s.weights.FocusArea*breakdown.FocusArea +
		s.weights.CommunicationStyle*breakdown.CommunicationStyle +
		s.weights.Availability*breakdown.Availability
	return CompatibilityScore{Overall: clamp01(overall), Breakdown: breakdown}
}

// ScoreWithThreshold scores the pair and rejects results below threshold with
// an insufficient_compatibility conflict.
func (s *Scorer) ScoreWithThreshold(a, b Candidate, threshold float64) (CompatibilityScore, error) {
	score := s.Score(a, b)
	if score.Overall < threshold {
		return score, apierr.Conflict("insufficient_compatibility",
			"compatibility %.2f below threshold %.2f", score.Overall, threshold)
	}
	return score, nil
}

func profileTimezone(c Candidate) string {
	if c.Profile == nil {
		return ""
	}
	return c.Profile.Timezone
}

func focusAreas(c Candidate) []string {
	if c.Profile == nil || len(c.Profile.FocusAreas) == 0 {
		return nil
	}
	var areas []string
	if err := json.Unmarshal(c.Profile.FocusAreas, &areas); err != nil {
		return nil
	}
	return areas
}

func communicationStyle(c Candidate) string {
	if c.Profile == nil {
		return ""
	}
	return c.Profile.CommunicationStyle
}

func availability(c Candidate) map[string]types.AvailabilityWindow {
	if c.Profile == nil || len(c.Profile.Availability) == 0 {
		return nil
	}
	var windows map[string]types.AvailabilityWindow
	if err := json.Unmarshal(c.Profile.Availability, &windows); err != nil {
		return nil
	}
	return windows
}

// timezoneScore bands the absolute offset difference in whole hours. Same
// offset is ideal, small gaps degrade gently, near-antipodal gaps bottom out
// at 0.1. An unresolvable timezone on either side is scored neutral.
func timezoneScore(tzA, tzB string) float64 {
	offA, okA := timezoneOffsetHours(tzA)
	offB, okB := timezoneOffsetHours(tzB)
	if !okA || !okB {
		return 0.5
	}
	d := math.Abs(offA - offB)
	if d > 12 {
		d = 24 - d
	}
	switch {
	case d == 0:
		return 1.0
	case d <= 1:
		return 0.8
	case d <= 3:
		return 0.6
	case d <= 8:
		return math.Max(0.5-(d-3)*0.08, 0.1)
	case d >= 12:
		return 0.1
	default:
		return math.Max(0.3-(d-8)*0.05, 0.1)
	}
}

func timezoneOffsetHours(tz string) (float64, bool) {
	if tz == "" {
		return 0, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0, false
	}
	_, offset := time.Now().In(loc).Zone()
	return float64(offset) / 3600.0, true
}

// focusAreaScore is the Jaccard overlap of the two focus-area sets. Two empty
// sets carry weak signal, not full agreement.
func focusAreaScore(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.3
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	intersection := 0
	for v := range setB {
		if _, ok := setA[v]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

var communicationMatrix = map[[2]string]float64{
	{types.CommunicationFrequent, types.CommunicationFrequent}: 1.0,
	{types.CommunicationModerate, types.CommunicationModerate}: 1.0,
	{types.CommunicationMinimal, types.CommunicationMinimal}:   1.0,
	{types.CommunicationFrequent, types.CommunicationModerate}: 0.8,
	{types.CommunicationModerate, types.CommunicationMinimal}:  0.7,
	{types.CommunicationFrequent, types.CommunicationMinimal}:  0.3,
}

func communicationScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if v, ok := communicationMatrix[[2]string{a, b}]; ok {
		return v
	}
	if v, ok := communicationMatrix[[2]string{b, a}]; ok {
		return v
	}
	return 0.5
}

// availabilityScore averages, over the days both users declare, the fraction
// of the longer window covered by the overlap. No shared days is neutral.
func availabilityScore(a, b map[string]types.AvailabilityWindow) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	var sum float64
	days := 0
	for day, wa := range a {
		wb, ok := b[day]
		if !ok {
			continue
		}
		lenA := wa.EndHour - wa.StartHour
		lenB := wb.EndHour - wb.StartHour
		if lenA <= 0 || lenB <= 0 {
			continue
		}
		overlap := min(wa.EndHour, wb.EndHour) - max(wa.StartHour, wb.StartHour)
		if overlap < 0 {
			overlap = 0
		}
		longer := lenA
		if lenB > longer {
			longer = lenB
		}
		sum += float64(overlap) / float64(longer)
		days++
	}
	if days == 0 {
		return 0.5
	}
	return sum / float64(days)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
