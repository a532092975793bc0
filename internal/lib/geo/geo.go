// Package geo provides the spherical geometry primitives used by route
// synthesis: bearings, great-circle distances, geodesic projection, polyline
// simplification and the route-complexity heuristic. Everything here is a
// pure deterministic function with no I/O.
package geo

import (
	"math"

	veloplan "github.com/veloplan/veloplan"
)

// EarthRadiusKm is the mean Earth radius used for all spherical math.
const EarthRadiusKm = 6371.0

// Bearing calculates the initial compass bearing from a to b in degrees,
// normalized to [0, 360).
func Bearing(a, b veloplan.Coordinate) float64 {
	lat1 := radians(a.Lat())
	lat2 := radians(b.Lat())
	dLon := radians(b.Lon() - a.Lon())

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// DistanceKm calculates the great-circle distance between two points in
// kilometers using the haversine formula.
func DistanceKm(a, b veloplan.Coordinate) float64 {
	lat1 := radians(a.Lat())
	lat2 := radians(b.Lat())
	dLat := radians(b.Lat() - a.Lat())
	dLon := radians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PathDistanceKm sums the great-circle distances along a polyline.
func PathDistanceKm(coords []veloplan.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += DistanceKm(coords[i-1], coords[i])
	}
	return total
}

// DestinationPoint projects a point distanceKm along bearingDegrees using
// the direct spherical geodesic formula.
func DestinationPoint(origin veloplan.Coordinate, distanceKm, bearingDegrees float64) veloplan.Coordinate {
	lat1 := radians(origin.Lat())
	lon1 := radians(origin.Lon())
	brng := radians(bearingDegrees)
	d := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := degrees(lon2)
	// Normalize longitude to [-180, 180]
	lon = math.Mod(lon+540, 360) - 180
	return veloplan.Coordinate{lon, degrees(lat2)}
}

// Midpoint returns the linear midpoint of two coordinates. Adequate for the
// short spans (route legs) this engine works with.
func Midpoint(a, b veloplan.Coordinate) veloplan.Coordinate {
	return veloplan.Coordinate{(a.Lon() + b.Lon()) / 2, (a.Lat() + b.Lat()) / 2}
}

// RouteComplexity measures the average normalized bearing change across
// consecutive point triples, in [0, 1]. Straight-line geometry scores 0; a
// constant sequence of 90-degree turns scores 0.5. Callers reject candidates
// below their configured cutoff because real road routes always turn.
func RouteComplexity(coords []veloplan.Coordinate) float64 {
	if len(coords) < 3 {
		return 0
	}

	total := 0.0
	samples := 0
	for i := 1; i < len(coords)-1; i++ {
		b1 := Bearing(coords[i-1], coords[i])
		b2 := Bearing(coords[i], coords[i+1])
		change := math.Abs(b2 - b1)
		if change > 180 {
			change = 360 - change
		}
		total += change / 180
		samples++
	}
	return total / float64(samples)
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm. The
// tolerance is expressed in degrees of perpendicular deviation, matching the
// coordinate space of the input.
func Simplify(coords []veloplan.Coordinate, tolerance float64) []veloplan.Coordinate {
	if len(coords) < 3 {
		out := make([]veloplan.Coordinate, len(coords))
		copy(out, coords)
		return out
	}

	keep := make([]bool, len(coords))
	keep[0] = true
	keep[len(coords)-1] = true
	douglasPeucker(coords, 0, len(coords)-1, tolerance, keep)

	var out []veloplan.Coordinate
	for i, k := range keep {
		if k {
			out = append(out, coords[i])
		}
	}
	return out
}

func douglasPeucker(coords []veloplan.Coordinate, first, last int, tolerance float64, keep []bool) {
	if last <= first+1 {
		return
	}

	maxDist := 0.0
	index := first
	for i := first + 1; i < last; i++ {
		d := perpendicularDistance(coords[i], coords[first], coords[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}

	if maxDist > tolerance {
		keep[index] = true
		douglasPeucker(coords, first, index, tolerance, keep)
		douglasPeucker(coords, index, last, tolerance, keep)
	}
}

// perpendicularDistance is the planar distance from p to the line through a
// and b, in degrees. Sufficient for simplification decisions at route scale.
func perpendicularDistance(p, a, b veloplan.Coordinate) float64 {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	if dx == 0 && dy == 0 {
		ddx := p.Lon() - a.Lon()
		ddy := p.Lat() - a.Lat()
		return math.Sqrt(ddx*ddx + ddy*ddy)
	}
	num := math.Abs(dy*p.Lon() - dx*p.Lat() + b.Lon()*a.Lat() - b.Lat()*a.Lon())
	return num / math.Sqrt(dx*dx+dy*dy)
}

// NearestPointOnPolyline projects a point onto the closest segment of the
// polyline and returns the projected point, the index of the segment's first
// vertex, and the distance to it in kilometers.
func NearestPointOnPolyline(coords []veloplan.Coordinate, p veloplan.Coordinate) (veloplan.Coordinate, int, float64) {
	if len(coords) == 0 {
		return p, -1, 0
	}
	if len(coords) == 1 {
		return coords[0], 0, DistanceKm(p, coords[0])
	}

	best := coords[0]
	bestIdx := 0
	bestDist := math.Inf(1)
	for i := 0; i < len(coords)-1; i++ {
		proj := projectOntoSegment(p, coords[i], coords[i+1])
		d := DistanceKm(p, proj)
		if d < bestDist {
			bestDist = d
			best = proj
			bestIdx = i
		}
	}
	return best, bestIdx, bestDist
}

// projectOntoSegment projects p onto segment ab in the local planar
// approximation, clamping to the segment ends.
func projectOntoSegment(p, a, b veloplan.Coordinate) veloplan.Coordinate {
	dx := b.Lon() - a.Lon()
	dy := b.Lat() - a.Lat()
	if dx == 0 && dy == 0 {
		return a
	}
	t := ((p.Lon()-a.Lon())*dx + (p.Lat()-a.Lat())*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return veloplan.Coordinate{a.Lon() + t*dx, a.Lat() + t*dy}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
