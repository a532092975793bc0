// Package synth turns a generation request and a riding profile into
// concrete route candidates. Strategies run in priority order, each
// appending to a shared pool, and synthesis stops early once enough valid
// candidates exist. Every candidate passes through the routing and elevation
// layers before it is accepted.
package synth

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/elevation"
	"github.com/veloplan/veloplan/internal/lib/geo"
	"github.com/veloplan/veloplan/internal/lib/routing"
	"github.com/veloplan/veloplan/internal/lib/suggest"
)

// Candidate sources recorded on synthesized routes.
const (
	SourceSuggestion = "ai_suggestion"
	SourceTemplate   = "history_template"
	SourceSegment    = "segment_reuse"
	SourceProcedural = "procedural"
)

// Config holds the synthesizer's tunables.
type Config struct {
	// RoutingProfile is the travel profile passed to routing providers.
	RoutingProfile string
	// MinCandidates stops synthesis early once the pool reaches this size.
	MinCandidates int
	// MaxSuggestions caps how many reasoning-service ideas are routed.
	MaxSuggestions int
	// MaxConcurrent bounds in-flight route and elevation requests.
	MaxConcurrent int
	// ComplexityThreshold rejects candidates with mostly straight-line
	// geometry, which indicates the routing provider failed to snap.
	ComplexityThreshold float64
	// MaxDistanceDivergence rejects candidates whose length diverges from
	// the requested distance by more than this factor in either direction.
	MaxDistanceDivergence float64
	// TemplateDistanceTolerance rejects a translated template whose snapped
	// distance differs from the original by more than this fraction.
	TemplateDistanceTolerance float64
	// SegmentSearchRadiusKm limits segment reuse to segments starting or
	// ending near the new start point.
	SegmentSearchRadiusKm float64
	// ProceduralVariants is how many plans the procedural strategy emits
	// when the request pins a single shape.
	ProceduralVariants int
}

// DefaultConfig returns the synthesis defaults.
func DefaultConfig() Config {
	return Config{
		RoutingProfile:            "cycling",
		MinCandidates:             3,
		MaxSuggestions:            3,
		MaxConcurrent:             3,
		ComplexityThreshold:       0.03,
		MaxDistanceDivergence:     2.0,
		TemplateDistanceTolerance: 0.3,
		SegmentSearchRadiusKm:     5,
		ProceduralVariants:        3,
	}
}

// Synthesizer produces route candidates from a request and riding profile.
type Synthesizer struct {
	snapper    *routing.Snapper
	elevations *elevation.Provider
	reasoner   veloplan.ReasoningService
	cfg        Config
	rng        *rand.Rand
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithRand injects the random source, letting tests be deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Synthesizer) { s.rng = rng }
}

// NewSynthesizer creates a Synthesizer. The reasoner may be nil, in which
// case the suggestion strategy yields nothing.
func NewSynthesizer(snapper *routing.Snapper, elevations *elevation.Provider, reasoner veloplan.ReasoningService, cfg Config, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		snapper:    snapper,
		elevations: elevations,
		reasoner:   reasoner,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize runs the strategies in priority order and returns the pooled
// candidates. It may return an empty slice; the caller is responsible for
// the last-resort fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	strategies := []func(context.Context, veloplan.GenerateRequest, veloplan.RidingProfile, *veloplan.WeatherConditions) []veloplan.RouteCandidate{
		s.suggestionCandidates,
		s.templateCandidates,
		s.segmentCandidates,
		s.proceduralCandidates,
	}

	var pool []veloplan.RouteCandidate
	for _, strategy := range strategies {
		pool = append(pool, strategy(ctx, req, profile, weather)...)
		if len(pool) >= s.cfg.MinCandidates {
			break
		}
	}
	return pool
}

// routePlan is a candidate before routing: a waypoint sequence plus the
// metadata the finished candidate will carry.
type routePlan struct {
	name        string
	description string
	waypoints   []veloplan.Coordinate
	difficulty  veloplan.Difficulty
	patternTag  string
	source      string
	// mirror doubles the snapped geometry back on itself for out-and-back
	// routes whose plan covers only the outbound leg.
	mirror bool
	// baseKm, when set, rejects the candidate if the snapped distance
	// differs from it by more than the template tolerance.
	baseKm float64
}

// suggestionCandidates asks the reasoning service for route ideas and turns
// each into routable waypoints, steering the route toward the compass
// direction the suggestion's turn hints name. Any failure yields zero
// candidates.
func (s *Synthesizer) suggestionCandidates(ctx context.Context, req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	if s.reasoner == nil {
		return nil
	}

	raw, err := s.reasoner.SuggestRoutes(ctx, suggest.BuildPrompt(req, profile, weather))
	if err != nil {
		log.Printf("synth: reasoning service failed: %v", err)
		return nil
	}
	suggestions, err := suggest.ParseSuggestions(raw)
	if err != nil {
		log.Printf("synth: unusable suggestions: %v", err)
		return nil
	}
	if len(suggestions) > s.cfg.MaxSuggestions {
		suggestions = suggestions[:s.cfg.MaxSuggestions]
	}

	target := req.TargetDistanceKm()
	shape := req.ShapePreference
	if shape == "" {
		shape = veloplan.ShapeLoop
	}

	plans := make([]routePlan, 0, len(suggestions))
	for _, sug := range suggestions {
		distKm := sug.EstimatedDistanceKm
		if distKm < target/s.cfg.MaxDistanceDivergence || distKm > target*s.cfg.MaxDistanceDivergence {
			distKm = target
		}
		plans = append(plans, routePlan{
			name:        sug.Name,
			description: sug.Description,
			waypoints:   s.steeredWaypoints(shape, req.Start, distKm, profile, sug.KeyDirections),
			difficulty:  sug.DifficultyValue(),
			patternTag:  sug.TrainingFocus,
			source:      SourceSuggestion,
			mirror:      shape == veloplan.ShapeOutBack,
		})
	}
	return s.materialize(ctx, plans, req, weather)
}

// templateCandidates translates matching historical route templates to the
// new start point.
func (s *Synthesizer) templateCandidates(ctx context.Context, req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	target := req.TargetDistanceKm()

	var plans []routePlan
	for _, tpl := range profile.RouteTemplates {
		if req.ShapePreference != "" && tpl.Shape != req.ShapePreference {
			continue
		}
		if target > 0 && math.Abs(tpl.BaseDistanceKm-target)/target > s.cfg.TemplateDistanceTolerance {
			continue
		}
		if !difficultyFitsGoal(tpl.Difficulty, req.TrainingGoal) {
			continue
		}

		plans = append(plans, routePlan{
			name:        fmt.Sprintf("Familiar %s ride", shapeLabel(tpl.Shape)),
			description: fmt.Sprintf("Adapted from a route you have ridden before, about %.0f km.", tpl.BaseDistanceKm),
			waypoints:   translateKeyPoints(tpl.KeyPoints, tpl.StartArea, req.Start),
			difficulty:  tpl.Difficulty,
			patternTag:  string(tpl.Shape),
			source:      SourceTemplate,
			baseKm:      tpl.BaseDistanceKm,
		})
	}
	return s.materialize(ctx, plans, req, weather)
}

// segmentCandidates reuses the closest historical segment near the start,
// reversing it when its far end is the nearer one, and closes a loop back
// to the start.
func (s *Synthesizer) segmentCandidates(ctx context.Context, req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	type nearSegment struct {
		seg      veloplan.RouteSegment
		distKm   float64
		reversed bool
	}

	var best *nearSegment
	for _, seg := range profile.RouteSegments {
		startDist := geo.DistanceKm(req.Start, seg.StartPoint)
		endDist := geo.DistanceKm(req.Start, seg.EndPoint)
		d, reversed := startDist, false
		if endDist < startDist {
			d, reversed = endDist, true
		}
		if d > s.cfg.SegmentSearchRadiusKm {
			continue
		}
		if best == nil || d < best.distKm {
			best = &nearSegment{seg: seg, distKm: d, reversed: reversed}
		}
	}
	if best == nil {
		return nil
	}

	coords := best.seg.Coordinates
	if best.reversed {
		coords = reverseCoordinates(coords)
	}

	waypoints := make([]veloplan.Coordinate, 0, len(coords)+2)
	waypoints = append(waypoints, req.Start)
	waypoints = append(waypoints, coords...)
	waypoints = append(waypoints, req.Start)

	plans := []routePlan{{
		name:        "Favorite stretch loop",
		description: fmt.Sprintf("Built around a %.1f km stretch you ride often.", best.seg.DistanceKm),
		waypoints:   waypoints,
		patternTag:  "segment",
		source:      SourceSegment,
	}}
	return s.materialize(ctx, plans, req, weather)
}

// proceduralCandidates generates loop, out-and-back and point-to-point
// waypoint patterns around the start.
func (s *Synthesizer) proceduralCandidates(ctx context.Context, req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	target := req.TargetDistanceKm()

	var shapes []veloplan.RouteShape
	if req.ShapePreference != "" {
		for i := 0; i < s.cfg.ProceduralVariants; i++ {
			shapes = append(shapes, req.ShapePreference)
		}
	} else {
		shapes = []veloplan.RouteShape{veloplan.ShapeLoop, veloplan.ShapeOutBack, veloplan.ShapePointToPoint}
	}

	plans := make([]routePlan, 0, len(shapes))
	for _, shape := range shapes {
		waypoints := s.generateWaypoints(shape, req.Start, target, profile)
		heading := "N"
		if len(waypoints) > 1 {
			heading = compassLabel(geo.Bearing(req.Start, waypoints[1]))
		}
		plans = append(plans, routePlan{
			name:        fmt.Sprintf("%s toward %s", shapeLabel(shape), heading),
			description: fmt.Sprintf("A generated %s of roughly %.0f km.", shapeLabel(shape), target),
			waypoints:   waypoints,
			patternTag:  string(shape),
			source:      SourceProcedural,
			mirror:      shape == veloplan.ShapeOutBack,
		})
	}
	return s.materialize(ctx, plans, req, weather)
}

func (s *Synthesizer) generateWaypoints(shape veloplan.RouteShape, start veloplan.Coordinate, targetKm float64, profile veloplan.RidingProfile) []veloplan.Coordinate {
	switch shape {
	case veloplan.ShapeOutBack:
		return OutAndBackWaypoints(start, targetKm, profile, s.rng)
	case veloplan.ShapePointToPoint:
		return PointToPointWaypoints(start, targetKm, profile, s.rng)
	default:
		return LoopWaypoints(start, targetKm, profile, s.rng)
	}
}

// steeredWaypoints is generateWaypoints with the initial bearing taken from
// a suggestion's turn hints when one names a compass direction. Hints
// without a recognizable direction fall back to the profile bearing.
func (s *Synthesizer) steeredWaypoints(shape veloplan.RouteShape, start veloplan.Coordinate, targetKm float64, profile veloplan.RidingProfile, hints []string) []veloplan.Coordinate {
	base, ok := bearingFromDirections(hints)
	if !ok {
		return s.generateWaypoints(shape, start, targetKm, profile)
	}
	switch shape {
	case veloplan.ShapeOutBack:
		return outAndBackWaypoints(start, targetKm, base, profile.FrequentAreas, s.rng)
	case veloplan.ShapePointToPoint:
		return pointToPointWaypoints(start, targetKm, base, profile.FrequentAreas, s.rng)
	default:
		return loopWaypoints(start, targetKm, base, profile.FrequentAreas, s.rng)
	}
}

// materialize routes, validates and enriches plans concurrently with a
// bounded fan-out. Plans that fail routing or geometric validation are
// silently dropped.
func (s *Synthesizer) materialize(ctx context.Context, plans []routePlan, req veloplan.GenerateRequest, weather *veloplan.WeatherConditions) []veloplan.RouteCandidate {
	if len(plans) == 0 {
		return nil
	}

	results := make([]*veloplan.RouteCandidate, len(plans))
	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.buildCandidate(ctx, plans[i], req, weather)
		}(i)
	}
	wg.Wait()

	out := make([]veloplan.RouteCandidate, 0, len(plans))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Synthesizer) buildCandidate(ctx context.Context, plan routePlan, req veloplan.GenerateRequest, weather *veloplan.WeatherConditions) *veloplan.RouteCandidate {
	opts := routing.SnapOptions{
		TrafficTolerance: req.TrafficTolerance,
		RequireBikeInfra: req.RequireBikeInfra,
	}
	snap, err := s.snapper.SnapRoute(ctx, plan.waypoints, s.cfg.RoutingProfile, opts)
	if err != nil {
		log.Printf("synth: routing failed for %q: %v", plan.name, err)
		return nil
	}
	if snap.Unroutable() {
		return nil
	}

	coords := snap.Coordinates
	distM := snap.DistanceMeters
	durS := snap.DurationSeconds
	if plan.mirror {
		coords = mirrorOutbound(coords)
		distM *= 2
		durS *= 2
	}

	if len(coords) < 2 {
		return nil
	}
	if geo.RouteComplexity(coords) < s.cfg.ComplexityThreshold {
		return nil
	}
	distKm := distM / 1000
	target := req.TargetDistanceKm()
	if target > 0 && (distKm < target/s.cfg.MaxDistanceDivergence || distKm > target*s.cfg.MaxDistanceDivergence) {
		return nil
	}
	if plan.baseKm > 0 && math.Abs(distKm-plan.baseKm)/plan.baseKm > s.cfg.TemplateDistanceTolerance {
		return nil
	}

	profile := s.elevations.FetchElevation(ctx, coords)
	stats := elevation.StatsWithThreshold(profile, elevation.DefaultNoiseThresholdM)

	difficulty := plan.difficulty
	if difficulty == "" {
		difficulty = classifyDifficulty(distKm, stats.GainM)
	}

	return &veloplan.RouteCandidate{
		Name:             plan.name,
		Description:      plan.description,
		DistanceMeters:   distM,
		ElevationGainM:   stats.GainM,
		ElevationLossM:   stats.LossM,
		Coordinates:      coords,
		Difficulty:       difficulty,
		TrainingGoal:     req.TrainingGoal,
		PatternTag:       plan.patternTag,
		Confidence:       snap.Confidence,
		Source:           plan.source,
		ElevationProfile: profile,
		WindFactor:       windExposure(coords, weather),
	}
}

// mirrorOutbound appends the reversed outbound geometry so the route
// retraces itself back to the start.
func mirrorOutbound(coords []veloplan.Coordinate) []veloplan.Coordinate {
	out := make([]veloplan.Coordinate, 0, len(coords)*2-1)
	out = append(out, coords...)
	for i := len(coords) - 2; i >= 0; i-- {
		out = append(out, coords[i])
	}
	return out
}

func reverseCoordinates(coords []veloplan.Coordinate) []veloplan.Coordinate {
	out := make([]veloplan.Coordinate, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

// translateKeyPoints shifts every key point by the vector from the
// template's original start to the new start. Translation keeps the shape's
// local geometry intact where rotation would not.
func translateKeyPoints(keyPoints []veloplan.Coordinate, from, to veloplan.Coordinate) []veloplan.Coordinate {
	dLon := to.Lon() - from.Lon()
	dLat := to.Lat() - from.Lat()
	out := make([]veloplan.Coordinate, len(keyPoints))
	for i, p := range keyPoints {
		out[i] = veloplan.Coordinate{p.Lon() + dLon, p.Lat() + dLat}
	}
	return out
}

// windExposure estimates how exposed the route is to the current wind: the
// length-weighted fraction of segments aligned with the wind axis, scaled
// by wind strength. Without weather the exposure is neutral.
func windExposure(coords []veloplan.Coordinate, weather *veloplan.WeatherConditions) float64 {
	if weather == nil || len(coords) < 2 {
		return 0.5
	}

	var totalKm, alignedKm float64
	for i := 1; i < len(coords); i++ {
		segKm := geo.DistanceKm(coords[i-1], coords[i])
		totalKm += segKm
		diff := math.Abs(angleDiff(geo.Bearing(coords[i-1], coords[i]), weather.WindDirectionDegrees))
		// Headwinds and tailwinds both count against the wind axis.
		if diff < 45 || diff > 135 {
			alignedKm += segKm
		}
	}
	if totalKm == 0 {
		return 0.5
	}

	strength := math.Min(1, weather.WindSpeedKmh/30)
	return (alignedKm / totalKm) * strength
}

func difficultyFitsGoal(d veloplan.Difficulty, goal veloplan.TrainingGoal) bool {
	switch goal {
	case veloplan.GoalHills:
		return d != veloplan.DifficultyEasy
	case veloplan.GoalRecovery:
		return d != veloplan.DifficultyHard
	default:
		return true
	}
}

func classifyDifficulty(distKm, gainM float64) veloplan.Difficulty {
	switch {
	case distKm > 60 || gainM > 800:
		return veloplan.DifficultyHard
	case distKm > 25 || gainM > 300:
		return veloplan.DifficultyModerate
	default:
		return veloplan.DifficultyEasy
	}
}

func shapeLabel(shape veloplan.RouteShape) string {
	switch shape {
	case veloplan.ShapeOutBack:
		return "out-and-back"
	case veloplan.ShapePointToPoint:
		return "point-to-point"
	default:
		return "loop"
	}
}
