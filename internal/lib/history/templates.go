package history

import (
	"sort"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// loopCloseKm is how close start and end must be for a ride to count as
// closed (loop or out-and-back).
const loopCloseKm = 0.5

// buildTemplates derives one whole-route template per ride with at least
// three key points, keeping the highest-confidence, most recent ones.
func (a *Analyzer) buildTemplates(rides []veloplan.RideRecord, keyPointSets [][]veloplan.Coordinate) []veloplan.RouteTemplate {
	var templates []veloplan.RouteTemplate
	for i, ride := range rides {
		keys := keyPointSets[i]
		if len(keys) < 3 {
			continue
		}

		track := make([]veloplan.Coordinate, len(ride.TrackPoints))
		for j, p := range ride.TrackPoints {
			track[j] = p.Coordinate()
		}

		tpl := veloplan.RouteTemplate{
			KeyPoints:      keys,
			StartArea:      keys[0],
			EndArea:        keys[len(keys)-1],
			Shape:          classifyShape(track),
			Difficulty:     classifyDifficulty(ride.DistanceMeters/1000, ride.ElevationGainM),
			BaseDistanceKm: ride.DistanceMeters / 1000,
			BaseElevationM: ride.ElevationGainM,
			Confidence:     templateConfidence(len(keys)),
			Timestamp:      ride.RecordedAt,
		}
		templates = append(templates, tpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Confidence != templates[j].Confidence {
			return templates[i].Confidence > templates[j].Confidence
		}
		return templates[i].Timestamp.After(templates[j].Timestamp)
	})
	if len(templates) > a.cfg.MaxTemplates {
		templates = templates[:a.cfg.MaxTemplates]
	}
	return templates
}

// classifyShape tags a closed ride as an out-and-back when the return half
// retraces the outbound half, as a loop otherwise, and as point-to-point
// when the ride does not come back to its start.
func classifyShape(track []veloplan.Coordinate) veloplan.RouteShape {
	start, end := track[0], track[len(track)-1]
	if geo.DistanceKm(start, end) > loopCloseKm {
		return veloplan.ShapePointToPoint
	}
	if retraces(track) {
		return veloplan.ShapeOutBack
	}
	return veloplan.ShapeLoop
}

// retraces compares the outbound half against the reversed return half; an
// out-and-back ride travels the same road twice, so the halves stay close.
func retraces(track []veloplan.Coordinate) bool {
	n := len(track)
	half := n / 2
	if half < 2 {
		return false
	}

	samples := 5
	if half < samples {
		samples = half
	}
	total := 0.0
	for i := 0; i < samples; i++ {
		outIdx := i * (half - 1) / samples
		backIdx := n - 1 - outIdx
		total += geo.DistanceKm(track[outIdx], track[backIdx])
	}
	return total/float64(samples) < 0.3
}

func classifyDifficulty(distanceKm, elevationGainM float64) veloplan.Difficulty {
	switch {
	case distanceKm > 60 || elevationGainM > 800:
		return veloplan.DifficultyHard
	case distanceKm > 25 || elevationGainM > 300:
		return veloplan.DifficultyModerate
	default:
		return veloplan.DifficultyEasy
	}
}

func templateConfidence(keyPoints int) float64 {
	conf := 0.5 + 0.04*float64(keyPoints)
	if conf > 0.9 {
		conf = 0.9
	}
	return conf
}
