// Package history derives a rider's RidingProfile from their past rides:
// distance and elevation preferences, favored compass directions, frequently
// visited areas, reusable route segments and whole-route templates. The
// profile is rebuilt fresh on every generation request; nothing is cached
// across calls.
package history

import (
	"math"
	"sort"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// Config holds the analyzer's clustering and extraction thresholds.
type Config struct {
	// TurnThresholdDeg marks a track point as a key point when the heading
	// changes by more than this.
	TurnThresholdDeg float64
	// AreaClusterKm groups key points into frequent areas.
	AreaClusterKm float64
	// MinAreaVisits qualifies a cluster as a frequent area.
	MinAreaVisits int
	// SegmentChunkKm closes a segment after this much cumulative distance.
	SegmentChunkKm float64
	// MinSegmentPoints discards shorter extractions.
	MinSegmentPoints int
	// SegmentMatchKm and SegmentBearingTolDeg group near-duplicate segments
	// across rides.
	SegmentMatchKm       float64
	SegmentBearingTolDeg float64
	// MinSegmentFrequency keeps only segments ridden this many times.
	MinSegmentFrequency int
	// MaxTemplates bounds the kept route templates.
	MaxTemplates int
	// MinTrackPoints is the minimum track length worth analyzing.
	MinTrackPoints int
}

// DefaultConfig returns the thresholds tuned against real ride data.
func DefaultConfig() Config {
	return Config{
		TurnThresholdDeg:     30,
		AreaClusterKm:        1.0,
		MinAreaVisits:        3,
		SegmentChunkKm:       2.0,
		MinSegmentPoints:     5,
		SegmentMatchKm:       0.5,
		SegmentBearingTolDeg: 30,
		MinSegmentFrequency:  2,
		MaxTemplates:         10,
		MinTrackPoints:       10,
	}
}

// Analyzer builds riding profiles from ride history.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer with the given config.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze derives a RidingProfile from past rides. An empty or unusable
// history yields the documented default profile rather than a nil value.
func (a *Analyzer) Analyze(rides []veloplan.RideRecord) veloplan.RidingProfile {
	usable := filterUsable(rides)
	if len(usable) == 0 {
		return veloplan.DefaultProfile()
	}

	profile := veloplan.RidingProfile{
		PreferredDistance: distanceStats(usable),
	}
	a.applyElevationPreferences(&profile, usable)

	tracked := withTracks(usable, a.cfg.MinTrackPoints)
	if len(tracked) > 0 {
		keyPointSets := make([][]veloplan.Coordinate, len(tracked))
		for i, ride := range tracked {
			keyPointSets[i] = a.keyPoints(ride)
		}
		profile.FrequentAreas = a.clusterFrequentAreas(keyPointSets)
		profile.PreferredDirections = a.preferredDirections(tracked)
		profile.RouteSegments = a.extractSegments(tracked)
		profile.RouteTemplates = a.buildTemplates(tracked, keyPointSets)
	}

	profile.Confidence = profileConfidence(len(usable), len(tracked))
	return profile
}

// filterUsable drops rides lacking a usable distance.
func filterUsable(rides []veloplan.RideRecord) []veloplan.RideRecord {
	var out []veloplan.RideRecord
	for _, r := range rides {
		if r.DistanceMeters > 0 {
			out = append(out, r)
		}
	}
	return out
}

func withTracks(rides []veloplan.RideRecord, minPoints int) []veloplan.RideRecord {
	var out []veloplan.RideRecord
	for _, r := range rides {
		if len(r.TrackPoints) >= minPoints {
			out = append(out, r)
		}
	}
	return out
}

func distanceStats(rides []veloplan.RideRecord) veloplan.DistanceStats {
	dists := make([]float64, len(rides))
	for i, r := range rides {
		dists[i] = r.DistanceMeters / 1000
	}
	sort.Float64s(dists)

	mean := 0.0
	for _, d := range dists {
		mean += d
	}
	mean /= float64(len(dists))

	stats := veloplan.DistanceStats{
		MeanKm:   mean,
		MedianKm: percentile(dists, 50),
		P60Km:    percentile(dists, 60),
		P80Km:    percentile(dists, 80),
	}
	switch {
	case mean < 20:
		stats.Bucket = "short"
	case mean < 50:
		stats.Bucket = "medium"
	case mean < 90:
		stats.Bucket = "long"
	default:
		stats.Bucket = "very_long"
	}
	return stats
}

func (a *Analyzer) applyElevationPreferences(profile *veloplan.RidingProfile, rides []veloplan.RideRecord) {
	gains := make([]float64, len(rides))
	mean := 0.0
	for i, r := range rides {
		gains[i] = r.ElevationGainM
		mean += r.ElevationGainM
	}
	mean /= float64(len(rides))
	sort.Float64s(gains)

	profile.PreferredElevationM = percentile(gains, 60)
	profile.ElevationToleranceM = percentile(gains, 80)
	switch {
	case mean < 300:
		profile.ElevationStyle = "flat"
	case mean < 600:
		profile.ElevationStyle = "rolling"
	case mean < 1200:
		profile.ElevationStyle = "hilly"
	default:
		profile.ElevationStyle = "mountainous"
	}
}

// keyPoints extracts the start, the end, and every point where the heading
// changes by more than the turn threshold.
func (a *Analyzer) keyPoints(ride veloplan.RideRecord) []veloplan.Coordinate {
	pts := ride.TrackPoints
	keys := []veloplan.Coordinate{pts[0].Coordinate()}

	prevBearing := geo.Bearing(pts[0].Coordinate(), pts[1].Coordinate())
	for i := 1; i < len(pts)-1; i++ {
		b := geo.Bearing(pts[i].Coordinate(), pts[i+1].Coordinate())
		change := math.Abs(b - prevBearing)
		if change > 180 {
			change = 360 - change
		}
		if change > a.cfg.TurnThresholdDeg {
			keys = append(keys, pts[i].Coordinate())
		}
		prevBearing = b
	}

	keys = append(keys, pts[len(pts)-1].Coordinate())
	return keys
}

// clusterFrequentAreas groups key points across rides and keeps clusters
// with enough visits.
func (a *Analyzer) clusterFrequentAreas(keyPointSets [][]veloplan.Coordinate) []veloplan.FrequentArea {
	type cluster struct {
		center veloplan.Coordinate
		count  int
	}
	var clusters []*cluster

	for _, set := range keyPointSets {
		for _, p := range set {
			matched := false
			for _, c := range clusters {
				if geo.DistanceKm(c.center, p) <= a.cfg.AreaClusterKm {
					// Running mean keeps the center representative.
					n := float64(c.count)
					c.center = veloplan.Coordinate{
						(c.center.Lon()*n + p.Lon()) / (n + 1),
						(c.center.Lat()*n + p.Lat()) / (n + 1),
					}
					c.count++
					matched = true
					break
				}
			}
			if !matched {
				clusters = append(clusters, &cluster{center: p, count: 1})
			}
		}
	}

	var areas []veloplan.FrequentArea
	for _, c := range clusters {
		if c.count >= a.cfg.MinAreaVisits {
			areas = append(areas, veloplan.FrequentArea{Center: c.center, Visits: c.count})
		}
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Visits > areas[j].Visits })
	return areas
}

// preferredDirections buckets every leg bearing into eight 45-degree
// sectors and returns the centers of the most frequent ones.
func (a *Analyzer) preferredDirections(rides []veloplan.RideRecord) []float64 {
	counts := make([]int, 8)
	for _, ride := range rides {
		pts := ride.TrackPoints
		for i := 1; i < len(pts); i++ {
			b := geo.Bearing(pts[i-1].Coordinate(), pts[i].Coordinate())
			sector := int(math.Mod(b+22.5, 360) / 45)
			counts[sector]++
		}
	}

	type sectorCount struct {
		sector int
		count  int
	}
	ranked := make([]sectorCount, 0, 8)
	for s, c := range counts {
		if c > 0 {
			ranked = append(ranked, sectorCount{s, c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })

	var dirs []float64
	for i, sc := range ranked {
		if i >= 3 {
			break
		}
		dirs = append(dirs, float64(sc.sector)*45)
	}
	return dirs
}

// profileConfidence grows with the amount of historical signal available.
func profileConfidence(rideCount, trackedCount int) float64 {
	conf := float64(rideCount) / 20
	if trackedCount > 0 {
		conf += 0.2
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// percentile computes the pct-th percentile of sorted values with linear
// interpolation.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := pct / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
