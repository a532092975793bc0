package scoring

import veloplan "github.com/veloplan/veloplan"

// ConditionsEvaluator scores how favorable current weather is for a given
// training goal, on a 0..1 scale with 0.5 meaning neutral.
type ConditionsEvaluator struct{}

// Evaluate rates the conditions. Missing weather reads as neutral so the
// scorer needs no special case when the weather provider is down.
func (ConditionsEvaluator) Evaluate(cond *veloplan.WeatherConditions, goal veloplan.TrainingGoal) float64 {
	if cond == nil {
		return 0.5
	}

	score := 0.5
	score += temperatureSignal(cond.TemperatureC)
	score += windSignal(cond.WindSpeedKmh, goal)

	return clamp(score, 0, 1)
}

func temperatureSignal(tempC float64) float64 {
	switch {
	case tempC >= 15 && tempC <= 25:
		return 0.2
	case tempC >= 5 && tempC < 15, tempC > 25 && tempC <= 32:
		return 0.05
	case tempC < -5 || tempC > 38:
		return -0.3
	default:
		return -0.1
	}
}

func windSignal(windKmh float64, goal veloplan.TrainingGoal) float64 {
	var s float64
	switch {
	case windKmh < 10:
		s = 0.2
	case windKmh < 20:
		s = 0.05
	case windKmh < 30:
		s = -0.1
	default:
		s = -0.25
	}

	// Interval work suffers most in wind; recovery rides tolerate it least
	// in terms of enjoyment but pace barely matters.
	if goal == veloplan.GoalIntervals && windKmh >= 20 {
		s -= 0.1
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
