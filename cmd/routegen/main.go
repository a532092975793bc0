// Command routegen generates and ranks cycling routes from the command
// line. Providers are wired from configuration; anything left unconfigured
// is simply skipped and the engine degrades to its deterministic fallbacks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/clients/graphhopper"
	"github.com/veloplan/veloplan/internal/clients/mapbox"
	"github.com/veloplan/veloplan/internal/clients/openelevation"
	"github.com/veloplan/veloplan/internal/clients/openweather"
	"github.com/veloplan/veloplan/internal/config"
	"github.com/veloplan/veloplan/internal/lib/scoring"
	"github.com/veloplan/veloplan/internal/lib/suggest"
	"github.com/veloplan/veloplan/internal/store/gpxstore"
	"github.com/veloplan/veloplan/internal/store/memstore"
	"github.com/veloplan/veloplan/internal/store/pgstore"
	"github.com/veloplan/veloplan/planner"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	lat := flag.Float64("lat", 39.74, "start latitude")
	lon := flag.Float64("lon", -104.99, "start longitude")
	minutes := flag.Int("minutes", 90, "time budget in minutes")
	goal := flag.String("goal", "endurance", "training goal: recovery|endurance|intervals|hills")
	shape := flag.String("shape", "", "route shape: loop|out_back|point_to_point")
	user := flag.String("user", "", "user id for ride history lookup")
	asJSON := flag.Bool("json", false, "print results as JSON")
	save := flag.Bool("save", false, "persist the top result to the configured route store")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, routes := buildDeps(ctx, cfg)
	p := planner.New(deps, plannerConfig(cfg))

	req := veloplan.GenerateRequest{
		UserID:            *user,
		Start:             veloplan.Coordinate{*lon, *lat},
		TimeBudgetMinutes: *minutes,
		TrainingGoal:      veloplan.TrainingGoal(*goal),
		ShapePreference:   veloplan.RouteShape(*shape),
	}

	results, err := p.Generate(ctx, req)
	if err != nil {
		log.Fatalf("Error generating routes: %v", err)
	}

	if *save && len(results) > 0 {
		saveTopResult(ctx, routes, *user, results[0])
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatalf("Error encoding results: %v", err)
		}
		return
	}

	printResults(results)
}

func buildDeps(ctx context.Context, cfg *config.Config) (planner.Deps, veloplan.RouteStore) {
	deps := planner.Deps{}
	var routes veloplan.RouteStore

	if cfg.Providers.MapboxAccessToken != "" {
		deps.RoutingProviders = append(deps.RoutingProviders,
			mapbox.NewClient(cfg.Providers.MapboxAccessToken))
	}
	if cfg.Providers.GraphHopperAPIKey != "" {
		gh := graphhopper.NewClient(cfg.Providers.GraphHopperAPIKey)
		deps.RoutingProviders = append(deps.RoutingProviders, gh)
		deps.InfraProvider = gh
	}
	deps.ElevationServices = []veloplan.ElevationService{
		openelevation.NewClient(),
		openelevation.NewTopoClient(),
	}
	if cfg.Providers.OpenWeatherAPIKey != "" {
		deps.Weather = openweather.NewClient(cfg.Providers.OpenWeatherAPIKey)
	}
	if cfg.Providers.OpenAIAPIKey != "" {
		deps.Reasoner = suggest.NewSuggester(cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIModel)
	}

	switch {
	case cfg.Storage.PostgresDSN != "":
		store, err := pgstore.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatalf("Error connecting to postgres: %v", err)
		}
		deps.History = store
		routes = store
	case cfg.Storage.GPXDirectory != "":
		deps.History = gpxstore.NewStore(cfg.Storage.GPXDirectory)
		routes = memstore.NewRouteStore()
	default:
		routes = memstore.NewRouteStore()
	}

	return deps, routes
}

func saveTopResult(ctx context.Context, routes veloplan.RouteStore, userID string, top veloplan.RouteCandidate) {
	route := &veloplan.SavedRoute{UserID: userID, Candidate: top}
	if err := routes.Create(ctx, route); err != nil {
		log.Printf("Warning: failed to save route: %v", err)
		return
	}
	log.Printf("Saved route %s (%s)", route.ID, top.Name)
}

func plannerConfig(cfg *config.Config) planner.Config {
	pc := planner.DefaultConfig()
	pc.MinResults = cfg.Engine.MinResults
	pc.MaxResults = cfg.Engine.MaxResults
	pc.HistoryLimit = cfg.Engine.HistoryLimit
	pc.Synthesis.RoutingProfile = cfg.Engine.RoutingProfile
	return pc
}

func printResults(results []veloplan.RouteCandidate) {
	for i, c := range results {
		fmt.Printf("%d. %s (score %.2f)\n", i+1, c.Name, c.Score)
		fmt.Printf("   %.1f km, +%.0fm / -%.0fm, ~%.0f min, %s, source=%s, confidence=%.2f\n",
			c.DistanceMeters/1000, c.ElevationGainM, c.ElevationLossM,
			scoring.EstimateDurationMinutes(&c, c.TrainingGoal),
			c.Difficulty, c.Source, c.Confidence)
		if c.Description != "" {
			fmt.Printf("   %s\n", c.Description)
		}
	}
}
