package planner

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
	"github.com/veloplan/veloplan/internal/lib/synth"
)

var denver = veloplan.Coordinate{-104.99, 39.74}

// echoRouter returns slightly densified input geometry, standing in for a
// provider that found roads exactly where it was pointed.
type echoRouter struct {
	fail bool
}

func (e *echoRouter) MatchToRoads(ctx context.Context, waypoints []veloplan.Coordinate, radiusMeters float64, profile string) (*veloplan.RouteResult, error) {
	return e.echo(waypoints)
}

func (e *echoRouter) Route(ctx context.Context, waypoints []veloplan.Coordinate, profile string, opts veloplan.RoutingOptions) (*veloplan.RouteResult, error) {
	return e.echo(waypoints)
}

func (e *echoRouter) echo(waypoints []veloplan.Coordinate) (*veloplan.RouteResult, error) {
	if e.fail {
		return nil, errors.New("provider down")
	}
	out := make([]veloplan.Coordinate, 0, len(waypoints)*3)
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1], waypoints[i]
		out = append(out, a, geo.Midpoint(a, b))
	}
	out = append(out, waypoints[len(waypoints)-1])
	return &veloplan.RouteResult{
		Coordinates:     out,
		DistanceMeters:  geo.PathDistanceKm(out) * 1000,
		DurationSeconds: geo.PathDistanceKm(out) / 25 * 3600,
		Confidence:      0.8,
	}, nil
}

type failingElevation struct{}

func (failingElevation) ElevationsFor(ctx context.Context, coords []veloplan.Coordinate) ([]veloplan.ElevationSample, error) {
	return nil, errors.New("elevation service down")
}

func newTestPlanner(router veloplan.RoutingService) *Planner {
	return New(Deps{
		RoutingProviders:  []veloplan.RoutingService{router},
		ElevationServices: []veloplan.ElevationService{failingElevation{}},
		Rand:              rand.New(rand.NewSource(42)),
	}, DefaultConfig())
}

func TestGenerateDenverEndurance(t *testing.T) {
	p := newTestPlanner(&echoRouter{})

	req := veloplan.GenerateRequest{
		Start:             denver,
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
	}
	results, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// At least one candidate lands near the 37.5km endurance target.
	target := 37.5
	var nearTarget bool
	for _, c := range results {
		km := c.DistanceMeters / 1000
		if km >= target*0.8 && km <= target*1.2 {
			nearTarget = true
		}
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
		assert.GreaterOrEqual(t, len(c.Coordinates), 2)
	}
	assert.True(t, nearTarget, "expected a candidate within 20%% of %.1f km", target)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestGenerateNeverReturnsEmpty(t *testing.T) {
	p := newTestPlanner(&echoRouter{fail: true})

	req := veloplan.GenerateRequest{
		Start:             denver,
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
	}
	results, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)

	fb := results[0]
	assert.Equal(t, synth.SourceFallback, fb.Source)
	assert.NotEmpty(t, fb.ElevationProfile)
	assert.Equal(t, denver, fb.Coordinates[0])
	assert.GreaterOrEqual(t, fb.Score, 0.0)
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	p := newTestPlanner(&echoRouter{})

	_, err := p.Generate(context.Background(), veloplan.GenerateRequest{
		Start:             veloplan.Coordinate{-200, 95},
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
	})
	assert.Error(t, err)

	_, err = p.Generate(context.Background(), veloplan.GenerateRequest{
		Start:             denver,
		TimeBudgetMinutes: 5,
		TrainingGoal:      veloplan.GoalEndurance,
	})
	assert.Error(t, err)
}

func TestGenerateHonorsResultLimit(t *testing.T) {
	p := newTestPlanner(&echoRouter{})

	req := veloplan.GenerateRequest{
		Start:             denver,
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
		MaxResults:        3,
	}
	results, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)
}

func TestGenerateUsesHistoryWhenAvailable(t *testing.T) {
	store := &stubHistory{rides: ridesAround(denver, 12)}
	p := New(Deps{
		RoutingProviders:  []veloplan.RoutingService{&echoRouter{}},
		ElevationServices: []veloplan.ElevationService{failingElevation{}},
		History:           store,
		Rand:              rand.New(rand.NewSource(42)),
	}, DefaultConfig())

	req := veloplan.GenerateRequest{
		UserID:            "rider-1",
		Start:             denver,
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
	}
	results, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "rider-1", store.lastUser)
}

func TestHistoryFailureFallsBackToDefaultProfile(t *testing.T) {
	p := New(Deps{
		RoutingProviders:  []veloplan.RoutingService{&echoRouter{}},
		ElevationServices: []veloplan.ElevationService{failingElevation{}},
		History:           &stubHistory{err: errors.New("db unreachable")},
		Rand:              rand.New(rand.NewSource(42)),
	}, DefaultConfig())

	req := veloplan.GenerateRequest{
		UserID:            "rider-1",
		Start:             denver,
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
	}
	results, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

type stubHistory struct {
	rides    []veloplan.RideRecord
	err      error
	lastUser string
}

func (s *stubHistory) PastRides(ctx context.Context, userID string, limit int) ([]veloplan.RideRecord, error) {
	s.lastUser = userID
	return s.rides, s.err
}

// ridesAround fabricates simple eastbound rides starting near the given
// point.
func ridesAround(start veloplan.Coordinate, n int) []veloplan.RideRecord {
	rides := make([]veloplan.RideRecord, n)
	for i := range rides {
		points := make([]veloplan.TrackPoint, 0, 20)
		cur := start
		for j := 0; j < 20; j++ {
			points = append(points, veloplan.TrackPoint{
				Latitude:  cur.Lat(),
				Longitude: cur.Lon(),
				Elevation: 1600,
			})
			cur = geo.DestinationPoint(cur, 1.5, 90)
		}
		rides[i] = veloplan.RideRecord{
			ID:             "ride",
			DistanceMeters: 30000,
			ElevationGainM: 250,
			TrackPoints:    points,
		}
	}
	return rides
}
