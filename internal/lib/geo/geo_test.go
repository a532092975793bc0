package geo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veloplan "github.com/veloplan/veloplan"
)

func TestDistanceKm(t *testing.T) {
	denver := veloplan.Coordinate{-104.99, 39.74}
	boulder := veloplan.Coordinate{-105.27, 40.015}

	d := DistanceKm(denver, boulder)
	// Denver to Boulder is roughly 39 km great-circle
	assert.InDelta(t, 39.0, d, 2.0)

	assert.Equal(t, 0.0, DistanceKm(denver, denver))
}

func TestBearing(t *testing.T) {
	origin := veloplan.Coordinate{-104.99, 39.74}

	north := veloplan.Coordinate{-104.99, 40.74}
	east := veloplan.Coordinate{-103.99, 39.74}

	assert.InDelta(t, 0.0, Bearing(origin, north), 0.5)
	assert.InDelta(t, 90.0, Bearing(origin, east), 1.0)

	b := Bearing(origin, veloplan.Coordinate{-105.99, 39.74})
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
	assert.InDelta(t, 270.0, b, 1.0)
}

func TestDestinationPoint_RoundTrip(t *testing.T) {
	origins := []veloplan.Coordinate{
		{-104.99, 39.74},  // Denver
		{-120.54, 38.07},  // Angels Camp
		{13.405, 52.52},   // Berlin
		{151.21, -33.868}, // Sydney
	}
	distances := []float64{0.1, 1, 10, 42.5, 100}
	bearings := []float64{0, 45, 90, 135, 222.5, 315, 359}

	for _, origin := range origins {
		for _, d := range distances {
			for _, brng := range bearings {
				name := fmt.Sprintf("%v/%.1fkm/%.1fdeg", origin, d, brng)
				t.Run(name, func(t *testing.T) {
					dest := DestinationPoint(origin, d, brng)
					got := DistanceKm(origin, dest)
					assert.InEpsilon(t, d, got, 0.005, "round-trip distance should be within 0.5%%")
				})
			}
		}
	}
}

func TestRouteComplexity_StraightLine(t *testing.T) {
	// Colinear points heading due east
	var coords []veloplan.Coordinate
	for i := 0; i < 10; i++ {
		coords = append(coords, veloplan.Coordinate{-104.99 + float64(i)*0.01, 39.74})
	}

	assert.InDelta(t, 0.0, RouteComplexity(coords), 0.001)
}

func TestRouteComplexity_Zigzag(t *testing.T) {
	// Alternating 90-degree turns: east, north, east, north...
	coords := []veloplan.Coordinate{{-104.99, 39.74}}
	for i := 0; i < 10; i++ {
		prev := coords[len(coords)-1]
		if i%2 == 0 {
			coords = append(coords, veloplan.Coordinate{prev.Lon() + 0.01, prev.Lat()})
		} else {
			coords = append(coords, veloplan.Coordinate{prev.Lon(), prev.Lat() + 0.01})
		}
	}

	assert.Greater(t, RouteComplexity(coords), 0.3)
}

func TestRouteComplexity_ShortInput(t *testing.T) {
	assert.Equal(t, 0.0, RouteComplexity(nil))
	assert.Equal(t, 0.0, RouteComplexity([]veloplan.Coordinate{{0, 0}, {1, 1}}))
}

func TestSimplify(t *testing.T) {
	// A dense near-straight line with one significant detour
	var coords []veloplan.Coordinate
	for i := 0; i <= 20; i++ {
		lat := 39.74
		if i == 10 {
			lat += 0.05 // the detour
		}
		coords = append(coords, veloplan.Coordinate{-104.99 + float64(i)*0.005, lat})
	}

	simplified := Simplify(coords, 0.001)
	assert.Less(t, len(simplified), len(coords))
	assert.Equal(t, coords[0], simplified[0])
	assert.Equal(t, coords[len(coords)-1], simplified[len(simplified)-1])

	// The detour point must survive simplification
	found := false
	for _, c := range simplified {
		if c.Lat() > 39.78 {
			found = true
		}
	}
	assert.True(t, found, "detour point should be kept")
}

func TestNearestPointOnPolyline(t *testing.T) {
	line := []veloplan.Coordinate{
		{-105.00, 39.70},
		{-105.00, 39.80},
		{-104.90, 39.80},
	}
	p := veloplan.Coordinate{-104.99, 39.75}

	proj, idx, distKm := NearestPointOnPolyline(line, p)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, 0, idx, "should project onto the first (north-south) segment")
	assert.InDelta(t, -105.00, proj.Lon(), 0.0001)
	assert.InDelta(t, 39.75, proj.Lat(), 0.0001)
	assert.Less(t, distKm, 1.5)

	// Point beyond the end clamps to the last vertex
	far := veloplan.Coordinate{-104.80, 39.80}
	proj, _, _ = NearestPointOnPolyline(line, far)
	assert.Equal(t, line[2], proj)
}

func TestPathDistanceKm(t *testing.T) {
	a := veloplan.Coordinate{-104.99, 39.74}
	b := DestinationPoint(a, 5, 90)
	c := DestinationPoint(b, 5, 90)

	assert.InDelta(t, 10.0, PathDistanceKm([]veloplan.Coordinate{a, b, c}), 0.05)
	assert.Equal(t, 0.0, PathDistanceKm([]veloplan.Coordinate{a}))
}
