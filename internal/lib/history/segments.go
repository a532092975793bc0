package history

import (
	"math"
	"sort"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// extractSegments walks every ride's track, closing a raw segment each time
// the cumulative distance passes the chunk size (or the ride ends), then
// groups near-duplicate raw segments across rides. Only segments ridden at
// least MinSegmentFrequency times survive.
func (a *Analyzer) extractSegments(rides []veloplan.RideRecord) []veloplan.RouteSegment {
	var raw []veloplan.RouteSegment
	for _, ride := range rides {
		raw = append(raw, a.chunkRide(ride)...)
	}
	return a.groupSegments(raw)
}

// chunkRide slices one ride's track into raw segments.
func (a *Analyzer) chunkRide(ride veloplan.RideRecord) []veloplan.RouteSegment {
	var segments []veloplan.RouteSegment
	pts := ride.TrackPoints

	var current []veloplan.Coordinate
	currentKm := 0.0
	flush := func() {
		if len(current) >= a.cfg.MinSegmentPoints {
			segments = append(segments, veloplan.RouteSegment{
				Coordinates: current,
				StartPoint:  current[0],
				EndPoint:    current[len(current)-1],
				DistanceKm:  currentKm,
				Bearing:     geo.Bearing(current[0], current[len(current)-1]),
				Frequency:   1,
			})
		}
		current = nil
		currentKm = 0
	}

	for i, p := range pts {
		c := p.Coordinate()
		if len(current) > 0 {
			currentKm += geo.DistanceKm(current[len(current)-1], c)
		}
		current = append(current, c)
		if currentKm >= a.cfg.SegmentChunkKm || i == len(pts)-1 {
			flush()
			if i < len(pts)-1 {
				// Next segment continues from this point.
				current = []veloplan.Coordinate{c}
			}
		}
	}
	return segments
}

// groupSegments clusters raw segments whose endpoints sit within the match
// distance and whose bearings agree within tolerance. A group of size n
// becomes one RouteSegment with frequency n.
func (a *Analyzer) groupSegments(raw []veloplan.RouteSegment) []veloplan.RouteSegment {
	type group struct {
		rep   veloplan.RouteSegment
		count int
	}
	var groups []*group

	for _, seg := range raw {
		matched := false
		for _, g := range groups {
			if a.segmentsMatch(g.rep, seg) {
				g.count++
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, &group{rep: seg, count: 1})
		}
	}

	var out []veloplan.RouteSegment
	for _, g := range groups {
		if g.count < a.cfg.MinSegmentFrequency {
			continue
		}
		seg := g.rep
		seg.Frequency = g.count
		seg.Confidence = math.Min(1, float64(g.count)/5)
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	return out
}

func (a *Analyzer) segmentsMatch(x, y veloplan.RouteSegment) bool {
	if geo.DistanceKm(x.StartPoint, y.StartPoint) > a.cfg.SegmentMatchKm {
		return false
	}
	if geo.DistanceKm(x.EndPoint, y.EndPoint) > a.cfg.SegmentMatchKm {
		return false
	}
	diff := math.Abs(x.Bearing - y.Bearing)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff <= a.cfg.SegmentBearingTolDeg
}
