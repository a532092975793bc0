package synth

import (
	"math"
	"math/rand"
	"strings"
	"unicode"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// Waypoint generators place 2-6 intermediate points around a start so the
// routing layer can turn them into road geometry. Bearings are biased toward
// the rider's preferred directions and frequently visited areas are used as
// literal targets when one lies in roughly the right direction and distance.

// LoopWaypoints lays points on a circle whose circumference approximates the
// target distance. The route closes back to the start.
func LoopWaypoints(start veloplan.Coordinate, targetKm float64, profile veloplan.RidingProfile, rng *rand.Rand) []veloplan.Coordinate {
	return loopWaypoints(start, targetKm, pickBearing(profile, rng), profile.FrequentAreas, rng)
}

func loopWaypoints(start veloplan.Coordinate, targetKm, base float64, areas []veloplan.FrequentArea, rng *rand.Rand) []veloplan.Coordinate {
	radius := targetKm / (2 * math.Pi)
	center := geo.DestinationPoint(start, radius, base)

	n := 2 + rng.Intn(3)
	startAngle := geo.Bearing(center, start)
	step := 360.0 / float64(n+1)

	coords := make([]veloplan.Coordinate, 0, n+2)
	coords = append(coords, start)
	for i := 1; i <= n; i++ {
		p := geo.DestinationPoint(center, radius, startAngle+step*float64(i))
		coords = append(coords, frequentAreaTarget(start, p, targetKm, areas))
	}
	coords = append(coords, start)
	return coords
}

// OutAndBackWaypoints produces the outbound leg only: the caller mirrors the
// snapped geometry for the return, so the leg covers half the target.
func OutAndBackWaypoints(start veloplan.Coordinate, targetKm float64, profile veloplan.RidingProfile, rng *rand.Rand) []veloplan.Coordinate {
	return outAndBackWaypoints(start, targetKm, pickBearing(profile, rng), profile.FrequentAreas, rng)
}

func outAndBackWaypoints(start veloplan.Coordinate, targetKm, base float64, areas []veloplan.FrequentArea, rng *rand.Rand) []veloplan.Coordinate {
	outKm := targetKm / 2

	n := 1 + rng.Intn(2)
	coords := make([]veloplan.Coordinate, 0, n+2)
	coords = append(coords, start)
	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n+1)
		jitter := (rng.Float64() - 0.5) * 30
		p := geo.DestinationPoint(start, outKm*frac, base+jitter)
		coords = append(coords, frequentAreaTarget(start, p, targetKm, areas))
	}
	coords = append(coords, geo.DestinationPoint(start, outKm, base))
	return coords
}

// PointToPointWaypoints heads away from the start and does not return.
func PointToPointWaypoints(start veloplan.Coordinate, targetKm float64, profile veloplan.RidingProfile, rng *rand.Rand) []veloplan.Coordinate {
	return pointToPointWaypoints(start, targetKm, pickBearing(profile, rng), profile.FrequentAreas, rng)
}

func pointToPointWaypoints(start veloplan.Coordinate, targetKm, base float64, areas []veloplan.FrequentArea, rng *rand.Rand) []veloplan.Coordinate {
	n := 2 + rng.Intn(2)
	coords := make([]veloplan.Coordinate, 0, n+2)
	coords = append(coords, start)
	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n+1)
		jitter := (rng.Float64() - 0.5) * 40
		p := geo.DestinationPoint(start, targetKm*frac, base+jitter)
		coords = append(coords, frequentAreaTarget(start, p, targetKm, areas))
	}
	coords = append(coords, geo.DestinationPoint(start, targetKm*0.95, base))
	return coords
}

// pickBearing chooses a heading, preferring one of the rider's historical
// direction sectors with some jitter, falling back to a uniform pick.
func pickBearing(profile veloplan.RidingProfile, rng *rand.Rand) float64 {
	if len(profile.PreferredDirections) > 0 {
		base := profile.PreferredDirections[rng.Intn(len(profile.PreferredDirections))]
		return math.Mod(base+(rng.Float64()-0.5)*40+360, 360)
	}
	return rng.Float64() * 360
}

// frequentAreaTarget swaps a generated waypoint for a frequently visited
// area center when the area sits within 30 degrees of the waypoint's bearing
// from the start and at a plausible fraction of the target distance.
func frequentAreaTarget(start, generated veloplan.Coordinate, targetKm float64, areas []veloplan.FrequentArea) veloplan.Coordinate {
	wpBearing := geo.Bearing(start, generated)
	for _, area := range areas {
		distKm := geo.DistanceKm(start, area.Center)
		if distKm < targetKm*0.15 || distKm > targetKm*0.6 {
			continue
		}
		if math.Abs(angleDiff(geo.Bearing(start, area.Center), wpBearing)) <= 30 {
			return area.Center
		}
	}
	return generated
}

var directionBearings = map[string]float64{
	"n": 0, "north": 0,
	"ne": 45, "northeast": 45,
	"e": 90, "east": 90,
	"se": 135, "southeast": 135,
	"s": 180, "south": 180,
	"sw": 225, "southwest": 225,
	"w": 270, "west": 270,
	"nw": 315, "northwest": 315,
}

// bearingFromDirections reads an initial heading out of free-text turn
// hints like "Head northeast on Foothills Pkwy" or a bare "SE". The first
// recognized compass token wins; a hint without one reports no bearing.
func bearingFromDirections(directions []string) (float64, bool) {
	for _, d := range directions {
		tokens := strings.FieldsFunc(strings.ToLower(d), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, tok := range tokens {
			if b, ok := directionBearings[tok]; ok {
				return b, true
			}
		}
	}
	return 0, false
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+540, 360) - 180
	return d
}

var compassLabels = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// compassLabel names a bearing by its nearest eighth of the compass rose.
func compassLabel(bearing float64) string {
	idx := int(math.Mod(bearing+22.5, 360) / 45)
	return compassLabels[idx]
}
