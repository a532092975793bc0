// Package routing snaps waypoint sequences onto road geometry. It layers a
// widening-radius map-matching strategy over a directions fallback and an
// optional cycling-infrastructure-aware provider, degrading to an
// unroutable sentinel rather than an error when every provider fails.
package routing

import (
	"context"
	"errors"
	"log"

	veloplan "github.com/veloplan/veloplan"
)

// ErrTooFewWaypoints is returned when snapping is requested with fewer than
// two waypoints. This is a precondition violation in the calling layer, not
// an environmental failure, so it is surfaced instead of swallowed.
var ErrTooFewWaypoints = errors.New("routing: at least 2 waypoints required")

// Snapper resolves waypoints into road-snapped polylines.
type Snapper struct {
	providers     []veloplan.RoutingService
	infraProvider veloplan.RoutingService
	cfg           Config
}

// NewSnapper creates a Snapper over the given primary providers, tried in
// order. infraProvider may be nil when no infrastructure-aware service is
// configured.
func NewSnapper(providers []veloplan.RoutingService, infraProvider veloplan.RoutingService, cfg Config) *Snapper {
	return &Snapper{providers: providers, infraProvider: infraProvider, cfg: cfg}
}

// SnapRoute matches the waypoint sequence to road geometry. Strategy order:
//  1. infrastructure-aware provider, when the rider signalled low traffic
//     tolerance or required bike infrastructure;
//  2. map matching per provider with widening radius;
//  3. directions-style routing per provider.
//
// Only a precondition violation produces an error; provider failures result
// in the unroutable sentinel.
func (s *Snapper) SnapRoute(ctx context.Context, waypoints []veloplan.Coordinate, profile string, opts SnapOptions) (*SnapResult, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}

	if s.wantsInfraAware(opts) {
		if res := s.tryInfraAware(ctx, waypoints, profile); res != nil {
			return res, nil
		}
	}

	for _, provider := range s.providers {
		if res := s.tryMatching(ctx, provider, waypoints, profile); res != nil {
			return res, nil
		}
	}
	for _, provider := range s.providers {
		if res := s.tryDirections(ctx, provider, waypoints, profile); res != nil {
			return res, nil
		}
	}

	return &SnapResult{
		Coordinates: append([]veloplan.Coordinate(nil), waypoints...),
		Confidence:  0,
		ProviderTag: ProviderTagUnroutable,
	}, nil
}

func (s *Snapper) wantsInfraAware(opts SnapOptions) bool {
	if s.infraProvider == nil {
		return false
	}
	return opts.RequireBikeInfra || opts.TrafficTolerance == veloplan.TrafficLow
}

func (s *Snapper) tryInfraAware(ctx context.Context, waypoints []veloplan.Coordinate, profile string) *SnapResult {
	res, err := s.infraProvider.Route(ctx, waypoints, profile, veloplan.RoutingOptions{
		AvoidMotorways:   true,
		PreferBikeInfra:  true,
		MaxDetourPercent: s.cfg.MaxDetourPercent,
	})
	if err != nil {
		log.Printf("infra-aware provider failed, falling back: %v", err)
		return nil
	}
	if len(res.Coordinates) < 2 {
		return nil
	}
	conf := res.Confidence
	if conf == 0 {
		conf = s.cfg.DirectionsConfidence
	}
	return &SnapResult{
		Coordinates:     res.Coordinates,
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.DurationSeconds,
		Confidence:      conf,
		ProviderTag:     ProviderTagInfraAware,
	}
}

// tryMatching escalates the search radius until a match is acceptable.
func (s *Snapper) tryMatching(ctx context.Context, provider veloplan.RoutingService, waypoints []veloplan.Coordinate, profile string) *SnapResult {
	minConf := s.cfg.MinConfidence
	if len(waypoints) > s.cfg.ManyWaypointCount {
		minConf = s.cfg.MinConfidenceManyWaypoints
	}

	for _, radius := range s.cfg.MatchRadiiMeters {
		res, err := provider.MatchToRoads(ctx, waypoints, radius, profile)
		if err != nil {
			log.Printf("map matching failed at radius %.0fm: %v", radius, err)
			continue
		}
		if len(res.Coordinates) < 2 {
			continue
		}

		dense := len(res.Coordinates) >= int(float64(len(waypoints))*s.cfg.DensityAcceptFactor)
		if res.Confidence >= minConf || dense {
			return &SnapResult{
				Coordinates:     res.Coordinates,
				DistanceMeters:  res.DistanceMeters,
				DurationSeconds: res.DurationSeconds,
				Confidence:      res.Confidence,
				ProviderTag:     ProviderTagMatched,
			}
		}
	}
	return nil
}

func (s *Snapper) tryDirections(ctx context.Context, provider veloplan.RoutingService, waypoints []veloplan.Coordinate, profile string) *SnapResult {
	res, err := provider.Route(ctx, waypoints, profile, veloplan.RoutingOptions{})
	if err != nil {
		log.Printf("directions request failed: %v", err)
		return nil
	}
	if len(res.Coordinates) < 2 {
		return nil
	}
	return &SnapResult{
		Coordinates:     res.Coordinates,
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.DurationSeconds,
		Confidence:      s.cfg.DirectionsConfidence,
		ProviderTag:     ProviderTagDirections,
	}
}
