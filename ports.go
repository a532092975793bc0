package veloplan

import (
	"context"
	"errors"
	"time"
)

// ErrRouteNotFound is returned by RouteStore implementations when no route
// exists for the given id.
var ErrRouteNotFound = errors.New("route not found")

// RouteResult is a provider's answer to a routing or matching request.
type RouteResult struct {
	Coordinates     []Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Confidence      float64
}

// RoutingOptions tune a routing request.
type RoutingOptions struct {
	AvoidMotorways   bool
	PreferBikeInfra  bool
	MaxDetourPercent float64
}

// RoutingService is the contract any road routing provider must satisfy.
// The concrete wire format belongs to the provider client.
type RoutingService interface {
	// Route computes a directions-style path through the ordered waypoints.
	Route(ctx context.Context, waypoints []Coordinate, profile string, opts RoutingOptions) (*RouteResult, error)
	// MatchToRoads snaps the waypoints onto road geometry using the given
	// search radius in meters.
	MatchToRoads(ctx context.Context, waypoints []Coordinate, radiusMeters float64, profile string) (*RouteResult, error)
}

// ElevationSample is one provider-reported elevation reading.
type ElevationSample struct {
	Coordinate      Coordinate
	ElevationMeters float64
}

// ElevationService returns elevations for a batch of coordinates.
type ElevationService interface {
	ElevationsFor(ctx context.Context, coordinates []Coordinate) ([]ElevationSample, error)
}

// WeatherConditions is the current weather snapshot used for scoring.
type WeatherConditions struct {
	TemperatureC         float64
	WindSpeedKmh         float64
	WindDirectionDegrees float64
	Description          string
	HumidityPercent      float64
}

// WeatherService reports current conditions at a location.
type WeatherService interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (*WeatherConditions, error)
}

// ReasoningService is an external LLM that proposes route ideas. The raw
// text is parsed by the caller; malformed output means zero suggestions,
// never an error surfaced past the strategy layer.
type ReasoningService interface {
	SuggestRoutes(ctx context.Context, structuredPrompt string) (string, error)
}

// TrackPoint is one downsampled GPS sample of a past ride.
type TrackPoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Elevation   float64 `json:"elevation,omitempty"`
	TimeSeconds float64 `json:"time_seconds,omitempty"`
}

// Coordinate converts the track point to the [lon, lat] representation.
func (p TrackPoint) Coordinate() Coordinate {
	return Coordinate{p.Longitude, p.Latitude}
}

// RideRecord is one past ride as stored by the history backend.
type RideRecord struct {
	ID             string       `json:"id"`
	Name           string       `json:"name,omitempty"`
	DistanceMeters float64      `json:"distance_meters"`
	ElevationGainM float64      `json:"elevation_gain_m"`
	ElevationLossM float64      `json:"elevation_loss_m"`
	RecordedAt     time.Time    `json:"recorded_at"`
	TrackPoints    []TrackPoint `json:"track_points,omitempty"`
}

// RideHistoryStore provides access to a rider's past rides.
type RideHistoryStore interface {
	PastRides(ctx context.Context, userID string, limit int) ([]RideRecord, error)
}

// SavedRoute is a persisted route record. The engine only ever hands a
// RouteCandidate-shaped object to the store and never depends on the store's
// schema beyond this.
type SavedRoute struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Candidate RouteCandidate `json:"candidate"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RouteStore is opaque create/read/update/delete for saved routes.
type RouteStore interface {
	Create(ctx context.Context, route *SavedRoute) error
	Get(ctx context.Context, id string) (*SavedRoute, error)
	List(ctx context.Context, userID string) ([]SavedRoute, error)
	Update(ctx context.Context, route *SavedRoute) error
	Delete(ctx context.Context, id string) error
}
