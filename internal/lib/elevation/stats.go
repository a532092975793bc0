package elevation

import veloplan "github.com/veloplan/veloplan"

// DefaultNoiseThresholdM is the minimum cumulative elevation delta, in
// meters, that counts toward gain or loss. Smaller oscillations are treated
// as GPS/DEM jitter and discarded. This is an empirically tuned constant;
// override it via StatsWithThreshold when validating against other data.
const DefaultNoiseThresholdM = 3.0

// Stats summarizes an elevation profile.
type Stats struct {
	GainM float64
	LossM float64
	MinM  float64
	MaxM  float64
}

// CalculateStats computes gain/loss/min/max with the default noise
// threshold.
func CalculateStats(profile []veloplan.ElevationPoint) Stats {
	return StatsWithThreshold(profile, DefaultNoiseThresholdM)
}

// StatsWithThreshold computes profile statistics, ignoring elevation swings
// whose accumulated magnitude stays below thresholdM. Deltas in a consistent
// direction accumulate until they either cross the threshold and commit, or
// reverse and cancel out.
func StatsWithThreshold(profile []veloplan.ElevationPoint, thresholdM float64) Stats {
	if len(profile) == 0 {
		return Stats{}
	}

	s := Stats{MinM: profile[0].ElevationMeters, MaxM: profile[0].ElevationMeters}
	pending := 0.0
	for i := 1; i < len(profile); i++ {
		e := profile[i].ElevationMeters
		if e < s.MinM {
			s.MinM = e
		}
		if e > s.MaxM {
			s.MaxM = e
		}

		delta := e - profile[i-1].ElevationMeters
		if (pending > 0) != (delta > 0) && pending != 0 && delta != 0 {
			// Direction reversed before committing; jitter cancels.
			pending = 0
		}
		pending += delta
		if pending >= thresholdM {
			s.GainM += pending
			pending = 0
		} else if pending <= -thresholdM {
			s.LossM += -pending
			pending = 0
		}
	}
	return s
}
