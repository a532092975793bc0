// Package elevation resolves per-point elevation for route geometry. It
// tries external elevation services in priority order and degrades to a
// deterministic synthetic terrain model, so callers always receive a usable
// profile and never an error.
package elevation

import (
	"context"
	"errors"
	"log"
	"math"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

var errEmptyResponse = errors.New("elevation service returned no samples")

const (
	// defaultMaxQueryPoints bounds how many points are sent to external
	// services; dense polylines are downsampled to this count and the
	// remaining points reconstructed by interpolation.
	defaultMaxQueryPoints = 50

	// defaultBatchSize is the per-call coordinate limit assumed for
	// providers that cap request sizes.
	defaultBatchSize = 100
)

// Provider fetches elevation profiles with provider fallback.
type Provider struct {
	services       []veloplan.ElevationService
	maxQueryPoints int
	batchSize      int
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxQueryPoints overrides the downsampling bound.
func WithMaxQueryPoints(n int) Option {
	return func(p *Provider) { p.maxQueryPoints = n }
}

// WithBatchSize overrides the per-call coordinate limit.
func WithBatchSize(n int) Option {
	return func(p *Provider) { p.batchSize = n }
}

// NewProvider creates a Provider that tries services in the given order.
func NewProvider(services []veloplan.ElevationService, opts ...Option) *Provider {
	p := &Provider{
		services:       services,
		maxQueryPoints: defaultMaxQueryPoints,
		batchSize:      defaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchElevation returns an elevation profile for the polyline. External
// services are tried in priority order; the first non-empty result wins. If
// every service fails the synthetic estimator fills in, so the returned
// profile is always complete and cumulative distance is monotonic.
func (p *Provider) FetchElevation(ctx context.Context, coords []veloplan.Coordinate) []veloplan.ElevationPoint {
	if len(coords) == 0 {
		return nil
	}

	queryIdx := downsampleIndices(len(coords), p.maxQueryPoints)
	queryCoords := make([]veloplan.Coordinate, len(queryIdx))
	for i, idx := range queryIdx {
		queryCoords[i] = coords[idx]
	}

	elevations := p.queryServices(ctx, queryCoords)
	if elevations == nil {
		elevations = make([]float64, len(queryCoords))
		for i, c := range queryCoords {
			elevations[i] = SyntheticElevation(c)
		}
	}

	return reconstructProfile(coords, queryIdx, elevations)
}

// queryServices tries each configured service and returns nil when all fail.
func (p *Provider) queryServices(ctx context.Context, coords []veloplan.Coordinate) []float64 {
	for _, svc := range p.services {
		samples, err := p.queryBatched(ctx, svc, coords)
		if err != nil {
			log.Printf("elevation service failed, trying next: %v", err)
			continue
		}
		if len(samples) != len(coords) {
			log.Printf("elevation service returned %d samples for %d points, trying next", len(samples), len(coords))
			continue
		}
		out := make([]float64, len(samples))
		for i, s := range samples {
			out[i] = s.ElevationMeters
		}
		return out
	}
	return nil
}

func (p *Provider) queryBatched(ctx context.Context, svc veloplan.ElevationService, coords []veloplan.Coordinate) ([]veloplan.ElevationSample, error) {
	var all []veloplan.ElevationSample
	for start := 0; start < len(coords); start += p.batchSize {
		end := start + p.batchSize
		if end > len(coords) {
			end = len(coords)
		}
		samples, err := svc.ElevationsFor(ctx, coords[start:end])
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			return nil, errEmptyResponse
		}
		all = append(all, samples...)
	}
	return all, nil
}

// downsampleIndices picks at most maxPoints evenly spaced indices, always
// including the first and last.
func downsampleIndices(n, maxPoints int) []int {
	if maxPoints < 2 {
		maxPoints = 2
	}
	if n <= maxPoints {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	idx := make([]int, 0, maxPoints)
	step := float64(n-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		idx = append(idx, int(math.Round(float64(i)*step)))
	}
	idx[len(idx)-1] = n - 1
	return idx
}

// reconstructProfile builds the full per-point profile by linearly
// interpolating sampled elevations along cumulative route distance.
func reconstructProfile(coords []veloplan.Coordinate, sampleIdx []int, sampleElev []float64) []veloplan.ElevationPoint {
	if len(sampleIdx) == 1 {
		return []veloplan.ElevationPoint{{
			Coordinate:      coords[0],
			ElevationMeters: sampleElev[0],
		}}
	}

	cumulative := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cumulative[i] = cumulative[i-1] + geo.DistanceKm(coords[i-1], coords[i])*1000
	}

	profile := make([]veloplan.ElevationPoint, len(coords))
	s := 0 // index into sampleIdx of the segment's left sample
	for i := range coords {
		for s < len(sampleIdx)-2 && sampleIdx[s+1] < i {
			s++
		}
		left, right := sampleIdx[s], sampleIdx[s+1]
		elev := sampleElev[s]
		if span := cumulative[right] - cumulative[left]; span > 0 && i >= left {
			frac := (cumulative[i] - cumulative[left]) / span
			if frac > 1 {
				frac = 1
			}
			elev = sampleElev[s] + frac*(sampleElev[s+1]-sampleElev[s])
		} else if i >= right {
			elev = sampleElev[s+1]
		}
		profile[i] = veloplan.ElevationPoint{
			Coordinate:          coords[i],
			ElevationMeters:     elev,
			CumulativeDistanceM: cumulative[i],
		}
	}
	return profile
}

// SyntheticElevation is the deterministic terrain fallback. The value is a
// smooth function seeded by latitude and longitude, so repeated calls for
// the same coordinate always agree and tests are reproducible.
func SyntheticElevation(c veloplan.Coordinate) float64 {
	lat, lon := c.Lat(), c.Lon()
	base := 400.0
	regional := 250*math.Sin(lat*0.9) + 200*math.Cos(lon*0.7)
	local := 80*math.Sin(lat*13.7+lon*7.1) + 40*math.Cos(lat*29.3-lon*17.9)
	elev := base + regional + local
	if elev < 0 {
		elev = 0
	}
	return elev
}
