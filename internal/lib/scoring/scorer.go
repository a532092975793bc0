// Package scoring ranks route candidates. The score is a 0.5 baseline plus
// independent signal contributions for training-goal fit, weather, time
// budget, route quality, historical-pattern similarity and traffic
// preference. Every signal is clamped before summation so no single signal
// can saturate the total.
package scoring

import (
	"math"
	"sort"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// Criteria carries everything the scorer weighs a candidate against.
type Criteria struct {
	Request veloplan.GenerateRequest
	Profile veloplan.RidingProfile
	Weather *veloplan.WeatherConditions
}

// Scorer assigns scores and sorts candidates.
type Scorer struct {
	weatherEval ConditionsEvaluator
}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a new slice of candidates, each a copy with Score set,
// sorted descending. Inputs are never mutated; candidates are frozen once
// pooled.
func (s *Scorer) Score(candidates []veloplan.RouteCandidate, criteria Criteria) []veloplan.RouteCandidate {
	scored := make([]veloplan.RouteCandidate, len(candidates))
	for i, c := range candidates {
		c.Score = s.scoreOne(&c, criteria)
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

func (s *Scorer) scoreOne(c *veloplan.RouteCandidate, criteria Criteria) float64 {
	score := 0.5
	score += s.trainingGoalFit(c, criteria.Request.TrainingGoal)
	score += s.weatherFit(c, criteria)
	score += s.timeBudgetFit(c, criteria.Request)
	score += s.routeQuality(c)
	score += s.historicalSimilarity(c, criteria.Profile)
	score += s.trafficPreference(c, criteria.Request)
	return clamp(score, 0, 1)
}

// trainingGoalFit rewards terrain matching the goal: climbing density for
// hills, flatness for recovery, shelter from wind for intervals.
func (s *Scorer) trainingGoalFit(c *veloplan.RouteCandidate, goal veloplan.TrainingGoal) float64 {
	climbPerKm := 0.0
	if c.DistanceKm() > 0 {
		climbPerKm = c.ElevationGainM / c.DistanceKm()
	}

	switch goal {
	case veloplan.GoalHills:
		return clamp((climbPerKm-5)*0.02, -0.1, 0.25)
	case veloplan.GoalRecovery:
		return clamp((8-climbPerKm)*0.02, -0.15, 0.15)
	case veloplan.GoalIntervals:
		return clamp((0.5-c.WindFactor)*0.3, -0.1, 0.1)
	default: // endurance: mildly prefer moderate terrain
		return clamp(0.1-math.Abs(climbPerKm-8)*0.01, -0.05, 0.1)
	}
}

func (s *Scorer) weatherFit(c *veloplan.RouteCandidate, criteria Criteria) float64 {
	favorability := s.weatherEval.Evaluate(criteria.Weather, c.TrainingGoal)
	return clamp((favorability-0.5)*0.3, -0.15, 0.15)
}

// timeBudgetFit compares the ride duration at the goal's flat-road speed
// with the budget. Climbing does not feed into this signal; candidates of
// equal length always receive the same budget contribution, and terrain
// differences are judged by trainingGoalFit alone.
func (s *Scorer) timeBudgetFit(c *veloplan.RouteCandidate, req veloplan.GenerateRequest) float64 {
	speed := veloplan.AverageSpeedKmh(req.TrainingGoal)
	if speed <= 0 {
		return 0
	}
	diff := math.Abs(c.DistanceKm()/speed*60 - float64(req.TimeBudgetMinutes))
	switch {
	case diff <= 10:
		return 0.15
	case diff <= 20:
		return 0.07
	default:
		return -clamp((diff-20)*0.005, 0, 0.2)
	}
}

// EstimateDurationMinutes predicts the ride duration in minutes. The goal's
// flat-road speed is reduced by 2% per meter-per-km of climbing above 10,
// capped at a 30% reduction.
func EstimateDurationMinutes(c *veloplan.RouteCandidate, goal veloplan.TrainingGoal) float64 {
	speed := veloplan.AverageSpeedKmh(goal)
	if c.DistanceKm() > 0 {
		ratio := c.ElevationGainM / c.DistanceKm()
		if ratio > 10 {
			speed *= 1 - math.Min(0.3, (ratio-10)*0.02)
		}
	}
	if speed <= 0 {
		return 0
	}
	return c.DistanceKm() / speed * 60
}

// routeQuality rewards confident map matching and a wind factor close to
// the ideal middle of the range.
func (s *Scorer) routeQuality(c *veloplan.RouteCandidate) float64 {
	q := c.Confidence * 0.1
	q += (0.5 - math.Abs(c.WindFactor-0.5)) * 0.1
	return clamp(q, 0, 0.15)
}

// historicalSimilarity rewards candidates resembling the rider's past
// riding, weighted by how much historical signal is available.
func (s *Scorer) historicalSimilarity(c *veloplan.RouteCandidate, profile veloplan.RidingProfile) float64 {
	if profile.Confidence == 0 {
		return 0
	}

	sim := 0.0
	meanKm := profile.PreferredDistance.MeanKm
	if meanKm > 0 {
		divergence := math.Abs(c.DistanceKm()-meanKm) / meanKm
		switch {
		case divergence <= 0.2:
			sim += 0.1
		case divergence <= 0.4:
			sim += 0.05
		case divergence > 1.0:
			sim -= 0.1
		}

		preferredRatio := profile.PreferredElevationM / meanKm
		actualRatio := 0.0
		if c.DistanceKm() > 0 {
			actualRatio = c.ElevationGainM / c.DistanceKm()
		}
		if preferredRatio > 0 && math.Abs(actualRatio-preferredRatio)/preferredRatio <= 0.3 {
			sim += 0.05
		}
	}

	if passesNearFrequentArea(c.Coordinates, profile.FrequentAreas, 5) {
		sim += 0.05
	}

	return clamp(sim*profile.Confidence, -0.15, 0.2)
}

func passesNearFrequentArea(coords []veloplan.Coordinate, areas []veloplan.FrequentArea, withinKm float64) bool {
	for _, area := range areas {
		for _, c := range coords {
			if geo.DistanceKm(c, area.Center) <= withinKm {
				return true
			}
		}
	}
	return false
}

// trafficPreference rewards quiet candidates when the rider asked for
// them: low measured traffic exposure or winding residential-style
// geometry scores up, heavy exposure scores down.
func (s *Scorer) trafficPreference(c *veloplan.RouteCandidate, req veloplan.GenerateRequest) float64 {
	if req.TrafficTolerance != veloplan.TrafficLow {
		return 0
	}

	p := 0.0
	switch {
	case c.TrafficExposure > 0 && c.TrafficExposure <= 0.3:
		p += 0.1
	case c.TrafficExposure >= 0.7:
		p -= 0.15
	case c.TrafficExposure == 0:
		// No measurement; winding geometry is the proxy for quiet streets.
		if geo.RouteComplexity(c.Coordinates) > 0.15 {
			p += 0.05
		}
	}
	return clamp(p, -0.15, 0.1)
}
