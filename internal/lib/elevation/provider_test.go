package elevation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// stubElevationService returns a fixed elevation for every coordinate, or
// fails when err is set.
type stubElevationService struct {
	elevation float64
	err       error
	calls     int
	maxBatch  int
}

func (s *stubElevationService) ElevationsFor(ctx context.Context, coords []veloplan.Coordinate) ([]veloplan.ElevationSample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.maxBatch > 0 && len(coords) > s.maxBatch {
		return nil, errors.New("too many coordinates in one call")
	}
	samples := make([]veloplan.ElevationSample, len(coords))
	for i, c := range coords {
		samples[i] = veloplan.ElevationSample{Coordinate: c, ElevationMeters: s.elevation}
	}
	return samples, nil
}

func routeCoords(n int) []veloplan.Coordinate {
	start := veloplan.Coordinate{-104.99, 39.74}
	coords := []veloplan.Coordinate{start}
	for i := 1; i < n; i++ {
		coords = append(coords, geo.DestinationPoint(coords[i-1], 0.5, 90))
	}
	return coords
}

func TestProvider_FirstServiceWins(t *testing.T) {
	primary := &stubElevationService{elevation: 1600}
	secondary := &stubElevationService{elevation: 99}
	p := NewProvider([]veloplan.ElevationService{primary, secondary})

	profile := p.FetchElevation(context.Background(), routeCoords(10))
	require.Len(t, profile, 10)
	assert.Equal(t, 1600.0, profile[0].ElevationMeters)
	assert.Zero(t, secondary.calls, "secondary should not be consulted")
}

func TestProvider_FallsThroughOnFailure(t *testing.T) {
	primary := &stubElevationService{err: errors.New("service down")}
	secondary := &stubElevationService{elevation: 1200}
	p := NewProvider([]veloplan.ElevationService{primary, secondary})

	profile := p.FetchElevation(context.Background(), routeCoords(5))
	require.Len(t, profile, 5)
	assert.Equal(t, 1200.0, profile[2].ElevationMeters)
	assert.Equal(t, 1, primary.calls)
}

func TestProvider_SyntheticFallbackIsDeterministic(t *testing.T) {
	failing := &stubElevationService{err: errors.New("down")}
	p := NewProvider([]veloplan.ElevationService{failing})
	coords := routeCoords(8)

	first := p.FetchElevation(context.Background(), coords)
	second := p.FetchElevation(context.Background(), coords)
	require.Len(t, first, 8)
	for i := range first {
		assert.Equal(t, first[i].ElevationMeters, second[i].ElevationMeters,
			"synthetic elevations must be reproducible")
	}
}

func TestProvider_NoServicesStillReturnsProfile(t *testing.T) {
	p := NewProvider(nil)
	profile := p.FetchElevation(context.Background(), routeCoords(4))
	require.Len(t, profile, 4)
	for _, pt := range profile {
		assert.GreaterOrEqual(t, pt.ElevationMeters, 0.0)
	}
}

func TestProvider_DownsamplesDensePolylines(t *testing.T) {
	svc := &stubElevationService{elevation: 800}
	p := NewProvider([]veloplan.ElevationService{svc}, WithMaxQueryPoints(50), WithBatchSize(1000))

	coords := routeCoords(400)
	profile := p.FetchElevation(context.Background(), coords)

	require.Len(t, profile, 400, "profile covers every original point")
	assert.Equal(t, 1, svc.calls, "downsampled query fits one batch")
}

func TestProvider_BatchesLargeQueries(t *testing.T) {
	svc := &stubElevationService{elevation: 800, maxBatch: 25}
	p := NewProvider([]veloplan.ElevationService{svc}, WithMaxQueryPoints(100), WithBatchSize(25))

	profile := p.FetchElevation(context.Background(), routeCoords(100))
	require.Len(t, profile, 100)
	assert.Equal(t, 4, svc.calls)
}

func TestProvider_CumulativeDistanceMonotonic(t *testing.T) {
	p := NewProvider(nil)
	profile := p.FetchElevation(context.Background(), routeCoords(30))
	for i := 1; i < len(profile); i++ {
		assert.GreaterOrEqual(t, profile[i].CumulativeDistanceM, profile[i-1].CumulativeDistanceM)
	}
	// 29 segments of 0.5 km
	assert.InDelta(t, 14500, profile[len(profile)-1].CumulativeDistanceM, 100)
}

func TestSyntheticElevation_Deterministic(t *testing.T) {
	c := veloplan.Coordinate{-104.99, 39.74}
	assert.Equal(t, SyntheticElevation(c), SyntheticElevation(c))
	assert.NotEqual(t, SyntheticElevation(c), SyntheticElevation(veloplan.Coordinate{-105.5, 40.2}))
}

func TestCalculateStats_FlatProfile(t *testing.T) {
	var profile []veloplan.ElevationPoint
	for i := 0; i < 10; i++ {
		profile = append(profile, veloplan.ElevationPoint{ElevationMeters: 1500})
	}

	s := CalculateStats(profile)
	assert.Equal(t, 0.0, s.GainM)
	assert.Equal(t, 0.0, s.LossM)
	assert.Equal(t, 1500.0, s.MinM)
	assert.Equal(t, 1500.0, s.MaxM)
}

func TestCalculateStats_IgnoresJitter(t *testing.T) {
	// 1m oscillation around 1000m: all noise, no gain
	var profile []veloplan.ElevationPoint
	for i := 0; i < 20; i++ {
		e := 1000.0
		if i%2 == 1 {
			e = 1001
		}
		profile = append(profile, veloplan.ElevationPoint{ElevationMeters: e})
	}

	s := CalculateStats(profile)
	assert.Equal(t, 0.0, s.GainM)
	assert.Equal(t, 0.0, s.LossM)
}

func TestCalculateStats_CountsRealClimbs(t *testing.T) {
	// Steady climb 1000 -> 1100 then descent back to 1050
	var profile []veloplan.ElevationPoint
	for e := 1000.0; e <= 1100; e += 10 {
		profile = append(profile, veloplan.ElevationPoint{ElevationMeters: e})
	}
	for e := 1090.0; e >= 1050; e -= 10 {
		profile = append(profile, veloplan.ElevationPoint{ElevationMeters: e})
	}

	s := CalculateStats(profile)
	assert.InDelta(t, 100, s.GainM, 1)
	assert.InDelta(t, 50, s.LossM, 1)
	assert.Equal(t, 1000.0, s.MinM)
	assert.Equal(t, 1100.0, s.MaxM)
}
