package routing

import veloplan "github.com/veloplan/veloplan"

// SnapResult is a road-snapped route. When every provider fails the snapper
// returns the unroutable sentinel: the raw waypoints echoed back with
// confidence 0, letting the synthesizer discard or retry instead of handling
// errors.
type SnapResult struct {
	Coordinates     []veloplan.Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Confidence      float64
	ProviderTag     string
}

// Unroutable reports whether this result is the failure sentinel.
func (r *SnapResult) Unroutable() bool {
	return r.Confidence == 0 && r.ProviderTag == ProviderTagUnroutable
}

// Provider tags recorded on snap results.
const (
	ProviderTagMatched    = "map_matching"
	ProviderTagDirections = "directions"
	ProviderTagInfraAware = "infra_aware"
	ProviderTagUnroutable = "unroutable"
)

// SnapOptions carry the rider preferences that influence provider choice.
type SnapOptions struct {
	TrafficTolerance veloplan.TrafficTolerance
	RequireBikeInfra bool
}

// Config holds the snapper's tunable thresholds. The confidence cutoffs are
// empirically tuned; treat them as starting points, not requirements.
type Config struct {
	// MatchRadiiMeters is the widening search radius sequence for map
	// matching attempts.
	MatchRadiiMeters []float64
	// MinConfidence accepts a match outright.
	MinConfidence float64
	// MinConfidenceManyWaypoints applies instead once the waypoint count
	// exceeds ManyWaypointCount; matching long sequences is inherently
	// harder, so the bar is lower.
	MinConfidenceManyWaypoints float64
	ManyWaypointCount          int
	// DensityAcceptFactor accepts a low-confidence match whose geometry is
	// at least this many times denser than the input, which indicates the
	// points really were snapped onto roads.
	DensityAcceptFactor float64
	// DirectionsConfidence is assigned to directions-style fallback results;
	// directions degrade gracefully to straight segments, so they are
	// trusted highly.
	DirectionsConfidence float64
	// MaxDetourPercent is offered to the infrastructure-aware provider as
	// the acceptable extra distance in exchange for quieter roads.
	MaxDetourPercent float64
}

// DefaultConfig returns the snapper defaults.
func DefaultConfig() Config {
	return Config{
		MatchRadiiMeters:           []float64{15, 25, 50},
		MinConfidence:              0.25,
		MinConfidenceManyWaypoints: 0.15,
		ManyWaypointCount:          8,
		DensityAcceptFactor:        2.0,
		DirectionsConfidence:       0.9,
		MaxDetourPercent:           25,
	}
}
