package synth

import (
	"math"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// SourceFallback tags the deterministic last-resort candidate so callers can
// warn the user that nothing better could be synthesized.
const SourceFallback = "fallback"

// FallbackCandidate builds a deterministic octagonal route around the start.
// It is the only candidate allowed to bypass geometric rejection, and it is
// always routable in the trivial sense of being its own geometry.
func FallbackCandidate(start veloplan.Coordinate, targetKm float64, goal veloplan.TrainingGoal) veloplan.RouteCandidate {
	// A regular octagon inscribed in radius r has perimeter 16*r*sin(pi/8).
	radius := targetKm / (16 * math.Sin(math.Pi/8))
	center := geo.DestinationPoint(start, radius, 0)
	startAngle := geo.Bearing(center, start)

	coords := make([]veloplan.Coordinate, 0, 9)
	coords = append(coords, start)
	for i := 1; i < 8; i++ {
		coords = append(coords, geo.DestinationPoint(center, radius, startAngle+45*float64(i)))
	}
	coords = append(coords, start)

	return veloplan.RouteCandidate{
		Name:           "Fallback loop",
		Description:    "A simple loop around your start point. Route synthesis could not produce road-matched alternatives.",
		DistanceMeters: geo.PathDistanceKm(coords) * 1000,
		Coordinates:    coords,
		Difficulty:     veloplan.DifficultyEasy,
		TrainingGoal:   goal,
		PatternTag:     "octagon",
		Confidence:     0.1,
		Source:         SourceFallback,
		WindFactor:     0.5,
	}
}
