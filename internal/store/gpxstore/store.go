// Package gpxstore reads ride history from a directory of GPX files, one
// ride per file. It is the local-file alternative to the database-backed
// history store.
package gpxstore

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/elevation"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// Store reads rides from GPX files under a directory. It implements
// veloplan.RideHistoryStore. The userID argument is ignored: a GPX
// directory belongs to a single rider.
type Store struct {
	dir string
}

// NewStore creates a store over the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// PastRides parses every .gpx file in the directory, newest ride first.
// Unparseable files are skipped with a log line rather than failing the
// whole history.
func (s *Store) PastRides(ctx context.Context, userID string, limit int) ([]veloplan.RideRecord, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.gpx"))
	if err != nil {
		return nil, fmt.Errorf("failed to list gpx files: %w", err)
	}

	rides := make([]veloplan.RideRecord, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ride, err := parseRide(file)
		if err != nil {
			log.Printf("gpxstore: skipping %s: %v", filepath.Base(file), err)
			continue
		}
		rides = append(rides, ride)
	}

	sort.Slice(rides, func(i, j int) bool { return rides[i].RecordedAt.After(rides[j].RecordedAt) })
	if limit > 0 && len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

func parseRide(file string) (veloplan.RideRecord, error) {
	data, err := gpx.ParseFile(file)
	if err != nil {
		return veloplan.RideRecord{}, fmt.Errorf("failed to parse: %w", err)
	}

	var points []veloplan.TrackPoint
	var recordedAt time.Time
	var startTime time.Time
	for _, track := range data.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				tp := veloplan.TrackPoint{
					Latitude:  point.Latitude,
					Longitude: point.Longitude,
					Elevation: point.Elevation.Value(),
				}
				if !point.Timestamp.IsZero() {
					if startTime.IsZero() {
						startTime = point.Timestamp
						recordedAt = point.Timestamp
					}
					tp.TimeSeconds = point.Timestamp.Sub(startTime).Seconds()
				}
				points = append(points, tp)
			}
		}
	}
	if len(points) < 2 {
		return veloplan.RideRecord{}, fmt.Errorf("no track points")
	}

	coords := make([]veloplan.Coordinate, len(points))
	profile := make([]veloplan.ElevationPoint, len(points))
	var cumulative float64
	for i, p := range points {
		coords[i] = p.Coordinate()
		if i > 0 {
			cumulative += geo.DistanceKm(coords[i-1], coords[i]) * 1000
		}
		profile[i] = veloplan.ElevationPoint{
			Coordinate:          coords[i],
			ElevationMeters:     p.Elevation,
			CumulativeDistanceM: cumulative,
		}
	}
	stats := elevation.StatsWithThreshold(profile, elevation.DefaultNoiseThresholdM)

	name := filepath.Base(file)
	if data.Name != "" {
		name = data.Name
	} else if len(data.Tracks) > 0 && data.Tracks[0].Name != "" {
		name = data.Tracks[0].Name
	}

	return veloplan.RideRecord{
		ID:             filepath.Base(file),
		Name:           name,
		DistanceMeters: cumulative,
		ElevationGainM: stats.GainM,
		ElevationLossM: stats.LossM,
		RecordedAt:     recordedAt,
		TrackPoints:    points,
	}, nil
}
