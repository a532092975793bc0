// Package veloplan defines the data model and provider contracts for the
// cycling route generation engine. The algorithmic components live under
// internal/lib and the top-level orchestrator in the planner package; this
// package holds only the types that cross those boundaries.
package veloplan

import (
	"fmt"
	"time"
)

// Coordinate is a geographic position as [longitude, latitude] in WGS84
// degrees. The axis order matches GeoJSON and is never swapped internally.
type Coordinate [2]float64

// Lon returns the longitude component in degrees.
func (c Coordinate) Lon() float64 { return c[0] }

// Lat returns the latitude component in degrees.
func (c Coordinate) Lat() float64 { return c[1] }

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat() >= -90 && c.Lat() <= 90 && c.Lon() >= -180 && c.Lon() <= 180
}

// TrainingGoal is the rider-selected intent for a generated ride. It biases
// speed assumptions, elevation targets and scoring weights.
type TrainingGoal string

const (
	GoalRecovery  TrainingGoal = "recovery"
	GoalEndurance TrainingGoal = "endurance"
	GoalIntervals TrainingGoal = "intervals"
	GoalHills     TrainingGoal = "hills"
)

// RouteShape classifies the overall geometry of a route.
type RouteShape string

const (
	ShapeLoop         RouteShape = "loop"
	ShapeOutBack      RouteShape = "out_back"
	ShapePointToPoint RouteShape = "point_to_point"
)

// Difficulty buckets a route by distance and climbing.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// TrafficTolerance expresses how much motor traffic the rider accepts.
type TrafficTolerance string

const (
	TrafficLow    TrafficTolerance = "low"
	TrafficMedium TrafficTolerance = "medium"
	TrafficHigh   TrafficTolerance = "high"
)

// ElevationPoint is one sample of a candidate's elevation profile.
// CumulativeDistanceM is measured along the route and is monotonically
// non-decreasing across a profile.
type ElevationPoint struct {
	Coordinate          Coordinate `json:"coordinate"`
	ElevationMeters     float64    `json:"elevation_meters"`
	CumulativeDistanceM float64    `json:"cumulative_distance_m"`
}

// RouteCandidate is a fully synthesized route ready for scoring. Candidates
// are append-then-freeze: once accepted into the pool nothing mutates them,
// and scoring returns copies with Score populated.
type RouteCandidate struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	DistanceMeters   float64          `json:"distance_meters"`
	ElevationGainM   float64          `json:"elevation_gain_m"`
	ElevationLossM   float64          `json:"elevation_loss_m"`
	Coordinates      []Coordinate     `json:"coordinates"`
	Difficulty       Difficulty       `json:"difficulty"`
	TrainingGoal     TrainingGoal     `json:"training_goal"`
	PatternTag       string           `json:"pattern_tag"`
	Confidence       float64          `json:"confidence"`
	Source           string           `json:"source"`
	ElevationProfile []ElevationPoint `json:"elevation_profile,omitempty"`
	WindFactor       float64          `json:"wind_factor"`
	TrafficExposure  float64          `json:"traffic_exposure,omitempty"`
	Score            float64          `json:"score,omitempty"`
}

// DistanceKm returns the candidate's length in kilometers.
func (r *RouteCandidate) DistanceKm() float64 { return r.DistanceMeters / 1000 }

// DistanceStats summarizes a rider's historical ride distances in km.
type DistanceStats struct {
	MeanKm   float64 `json:"mean_km"`
	MedianKm float64 `json:"median_km"`
	P60Km    float64 `json:"p60_km"`
	P80Km    float64 `json:"p80_km"`
	Bucket   string  `json:"bucket"` // short, medium, long, very_long
}

// FrequentArea is a spatial cluster of key points visited across rides.
type FrequentArea struct {
	Center Coordinate `json:"center"`
	Visits int        `json:"visits"`
}

// RouteSegment is a reusable sub-polyline extracted from past rides by
// clustering near-duplicate stretches (same endpoints within ~500m and
// bearing within 30 degrees).
type RouteSegment struct {
	Coordinates []Coordinate `json:"coordinates"`
	StartPoint  Coordinate   `json:"start_point"`
	EndPoint    Coordinate   `json:"end_point"`
	DistanceKm  float64      `json:"distance_km"`
	Bearing     float64      `json:"bearing"`
	Frequency   int          `json:"frequency"`
	Confidence  float64      `json:"confidence"`
}

// RouteTemplate is a reusable whole-route shape derived from one past ride's
// key direction-change points.
type RouteTemplate struct {
	KeyPoints      []Coordinate `json:"key_points"`
	StartArea      Coordinate   `json:"start_area"`
	EndArea        Coordinate   `json:"end_area"`
	Shape          RouteShape   `json:"shape"`
	Difficulty     Difficulty   `json:"difficulty"`
	BaseDistanceKm float64      `json:"base_distance_km"`
	BaseElevationM float64      `json:"base_elevation_m"`
	Confidence     float64      `json:"confidence"`
	Timestamp      time.Time    `json:"timestamp"`
}

// RidingProfile is a read-only summary of a rider's history, rebuilt fresh
// on every generation request. An empty history yields DefaultProfile, never
// a nil or zero profile, so downstream code needs no new-user branches.
type RidingProfile struct {
	PreferredDistance   DistanceStats   `json:"preferred_distance"`
	PreferredDirections []float64       `json:"preferred_directions"` // sector centers, degrees
	FrequentAreas       []FrequentArea  `json:"frequent_areas"`
	PreferredElevationM float64         `json:"preferred_elevation_m"`
	ElevationToleranceM float64         `json:"elevation_tolerance_m"`
	ElevationStyle      string          `json:"elevation_style"` // flat, rolling, hilly, mountainous
	RouteSegments       []RouteSegment  `json:"route_segments"`
	RouteTemplates      []RouteTemplate `json:"route_templates"`
	Confidence          float64         `json:"confidence"`
}

// DefaultProfile is the documented profile for riders with no usable
// history: medium-distance bias, no directional preference, moderate
// elevation tolerance.
func DefaultProfile() RidingProfile {
	return RidingProfile{
		PreferredDistance: DistanceStats{
			MeanKm:   30,
			MedianKm: 30,
			P60Km:    35,
			P80Km:    45,
			Bucket:   "medium",
		},
		PreferredElevationM: 300,
		ElevationToleranceM: 600,
		ElevationStyle:      "rolling",
		Confidence:          0,
	}
}

// GenerateRequest describes one route-generation call.
type GenerateRequest struct {
	UserID            string           `json:"user_id,omitempty"`
	Start             Coordinate       `json:"start"`
	TimeBudgetMinutes int              `json:"time_budget_minutes"`
	TrainingGoal      TrainingGoal     `json:"training_goal"`
	ShapePreference   RouteShape       `json:"shape_preference,omitempty"`
	TrafficTolerance  TrafficTolerance `json:"traffic_tolerance,omitempty"`
	RequireBikeInfra  bool             `json:"require_bike_infra,omitempty"`
	MaxResults        int              `json:"max_results,omitempty"`
}

// Validate checks the request preconditions. Violations indicate a bug in
// the calling layer and are surfaced as errors rather than degraded output.
func (r GenerateRequest) Validate() error {
	if !r.Start.Valid() {
		return fmt.Errorf("invalid start coordinate: %v", r.Start)
	}
	if r.TimeBudgetMinutes < 15 || r.TimeBudgetMinutes > 240 {
		return fmt.Errorf("time budget must be 15-240 minutes, got %d", r.TimeBudgetMinutes)
	}
	switch r.TrainingGoal {
	case GoalRecovery, GoalEndurance, GoalIntervals, GoalHills:
	default:
		return fmt.Errorf("unknown training goal %q", r.TrainingGoal)
	}
	return nil
}

// TargetDistanceKm converts the time budget to a target ride distance using
// the goal-specific average speed.
func (r GenerateRequest) TargetDistanceKm() float64 {
	return float64(r.TimeBudgetMinutes) / 60 * AverageSpeedKmh(r.TrainingGoal)
}

// AverageSpeedKmh returns the assumed flat-terrain average speed for a goal.
func AverageSpeedKmh(goal TrainingGoal) float64 {
	switch goal {
	case GoalRecovery:
		return 20
	case GoalIntervals:
		return 28
	case GoalHills:
		return 18
	default: // endurance
		return 25
	}
}
