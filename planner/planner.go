// Package planner is the top-level entry point for route generation. It
// sequences history analysis, candidate synthesis and scoring, and
// guarantees a non-empty result through a deterministic last-resort route.
package planner

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/elevation"
	"github.com/veloplan/veloplan/internal/lib/history"
	"github.com/veloplan/veloplan/internal/lib/routing"
	"github.com/veloplan/veloplan/internal/lib/scoring"
	"github.com/veloplan/veloplan/internal/lib/synth"
)

// Config aggregates the tunables of every stage.
type Config struct {
	// MinResults and MaxResults bound how many ranked candidates a call
	// returns when the pool is large enough.
	MinResults int
	MaxResults int
	// HistoryLimit caps how many past rides are fetched per request.
	HistoryLimit int

	Routing   routing.Config
	Synthesis synth.Config
	History   history.Config
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		MinResults:   3,
		MaxResults:   5,
		HistoryLimit: 50,
		Routing:      routing.DefaultConfig(),
		Synthesis:    synth.DefaultConfig(),
		History:      history.DefaultConfig(),
	}
}

// Deps are the external services a Planner talks to. Routing providers are
// required for useful output; everything else is optional and degrades
// gracefully when nil.
type Deps struct {
	RoutingProviders  []veloplan.RoutingService
	InfraProvider     veloplan.RoutingService
	ElevationServices []veloplan.ElevationService
	Weather           veloplan.WeatherService
	Reasoner          veloplan.ReasoningService
	History           veloplan.RideHistoryStore
	// Rand, when set, makes waypoint generation reproducible.
	Rand *rand.Rand
}

// Planner generates and ranks route candidates.
type Planner struct {
	cfg         Config
	historySvc  veloplan.RideHistoryStore
	weatherSvc  veloplan.WeatherService
	analyzer    *history.Analyzer
	synthesizer *synth.Synthesizer
	scorer      *scoring.Scorer
	elevations  *elevation.Provider
}

// New wires a Planner from its dependencies.
func New(deps Deps, cfg Config) *Planner {
	snapper := routing.NewSnapper(deps.RoutingProviders, deps.InfraProvider, cfg.Routing)
	elevations := elevation.NewProvider(deps.ElevationServices)

	var synthOpts []synth.Option
	if deps.Rand != nil {
		synthOpts = append(synthOpts, synth.WithRand(deps.Rand))
	}

	return &Planner{
		cfg:         cfg,
		historySvc:  deps.History,
		weatherSvc:  deps.Weather,
		analyzer:    history.NewAnalyzer(cfg.History),
		synthesizer: synth.NewSynthesizer(snapper, elevations, deps.Reasoner, cfg.Synthesis, synthOpts...),
		scorer:      scoring.NewScorer(),
		elevations:  elevations,
	}
}

// Generate produces ranked route candidates for the request. The returned
// slice is never empty: when every synthesis strategy fails the single
// fallback candidate is returned so the caller can warn the user instead of
// showing nothing.
func (p *Planner) Generate(ctx context.Context, req veloplan.GenerateRequest) ([]veloplan.RouteCandidate, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	profile := p.ridingProfile(ctx, req)
	weather := p.currentWeather(ctx, req.Start)

	pool := p.synthesizer.Synthesize(ctx, req, profile, weather)
	if len(pool) == 0 {
		pool = []veloplan.RouteCandidate{p.fallback(ctx, req)}
	}

	scored := p.scorer.Score(pool, scoring.Criteria{
		Request: req,
		Profile: profile,
		Weather: weather,
	})

	limit := p.resultLimit(req)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// ridingProfile rebuilds the profile from the ride history on every call.
// Missing history, a nil store or a store failure all yield the default
// profile rather than an error.
func (p *Planner) ridingProfile(ctx context.Context, req veloplan.GenerateRequest) veloplan.RidingProfile {
	if p.historySvc == nil || req.UserID == "" {
		return p.analyzer.Analyze(nil)
	}
	rides, err := p.historySvc.PastRides(ctx, req.UserID, p.cfg.HistoryLimit)
	if err != nil {
		log.Printf("planner: ride history unavailable for %s: %v", req.UserID, err)
		return p.analyzer.Analyze(nil)
	}
	return p.analyzer.Analyze(rides)
}

func (p *Planner) currentWeather(ctx context.Context, at veloplan.Coordinate) *veloplan.WeatherConditions {
	if p.weatherSvc == nil {
		return nil
	}
	cond, err := p.weatherSvc.CurrentConditions(ctx, at.Lat(), at.Lon())
	if err != nil {
		log.Printf("planner: weather unavailable: %v", err)
		return nil
	}
	return cond
}

func (p *Planner) fallback(ctx context.Context, req veloplan.GenerateRequest) veloplan.RouteCandidate {
	fb := synth.FallbackCandidate(req.Start, req.TargetDistanceKm(), req.TrainingGoal)
	fb.ElevationProfile = p.elevations.FetchElevation(ctx, fb.Coordinates)
	stats := elevation.StatsWithThreshold(fb.ElevationProfile, elevation.DefaultNoiseThresholdM)
	fb.ElevationGainM = stats.GainM
	fb.ElevationLossM = stats.LossM
	return fb
}

func (p *Planner) resultLimit(req veloplan.GenerateRequest) int {
	limit := p.cfg.MaxResults
	if req.MaxResults > 0 {
		limit = req.MaxResults
		if limit < p.cfg.MinResults {
			limit = p.cfg.MinResults
		}
		if limit > p.cfg.MaxResults {
			limit = p.cfg.MaxResults
		}
	}
	return limit
}
