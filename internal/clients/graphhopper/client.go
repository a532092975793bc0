// Package graphhopper implements routing against the GraphHopper Routing
// API. Its custom-model support makes it the infrastructure-aware provider:
// motorways can be blocked outright and cycleways upweighted, at the cost of
// a bounded detour.
package graphhopper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twpayne/go-polyline"

	veloplan "github.com/veloplan/veloplan"
	"github.com/veloplan/veloplan/internal/lib/geo"
)

// Client talks to the GraphHopper API. It implements
// veloplan.RoutingService.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a GraphHopper API client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://graphhopper.com/api/1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Route requests a path through the waypoints. Routing options translate to
// a custom model: avoided motorways get priority 0, bike infrastructure a
// priority boost, and the detour bound caps how much longer the quiet
// alternative may be.
func (c *Client) Route(ctx context.Context, waypoints []veloplan.Coordinate, profile string, opts veloplan.RoutingOptions) (*veloplan.RouteResult, error) {
	points := make([][]float64, len(waypoints))
	for i, w := range waypoints {
		points[i] = []float64{w.Lon(), w.Lat()}
	}

	reqBody := routeRequest{
		Points:         points,
		Profile:        ghProfile(profile),
		PointsEncoded:  true,
		InstructionsOn: false,
	}
	if opts.AvoidMotorways || opts.PreferBikeInfra {
		reqBody.CHDisable = true
		reqBody.CustomModel = buildCustomModel(opts)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	requestURL := fmt.Sprintf("%s/route?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 {
		return nil, fmt.Errorf("invalid API key")
	}
	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Paths) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	best := response.Paths[0]
	coords, err := decodePoints(best.Points)
	if err != nil {
		return nil, err
	}
	return &veloplan.RouteResult{
		Coordinates:     coords,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.TimeMillis / 1000,
	}, nil
}

// MatchToRoads approximates map matching by routing through every waypoint
// and reporting how well the result stays near the inputs. GraphHopper's
// point snapping does the heavy lifting; a waypoint snapped further than the
// requested radius lowers the confidence.
func (c *Client) MatchToRoads(ctx context.Context, waypoints []veloplan.Coordinate, radiusMeters float64, profile string) (*veloplan.RouteResult, error) {
	res, err := c.Route(ctx, waypoints, profile, veloplan.RoutingOptions{})
	if err != nil {
		return nil, err
	}
	res.Confidence = snapConfidence(waypoints, res.Coordinates, radiusMeters)
	return res, nil
}

// snapConfidence is the fraction of waypoints with snapped geometry within
// the search radius.
func snapConfidence(waypoints, snapped []veloplan.Coordinate, radiusMeters float64) float64 {
	if len(waypoints) == 0 || len(snapped) == 0 {
		return 0
	}
	within := 0
	for _, w := range waypoints {
		if nearestDistanceMeters(snapped, w) <= radiusMeters {
			within++
		}
	}
	return float64(within) / float64(len(waypoints))
}

func nearestDistanceMeters(coords []veloplan.Coordinate, p veloplan.Coordinate) float64 {
	best := -1.0
	for _, c := range coords {
		d := geo.DistanceKm(c, p) * 1000
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func buildCustomModel(opts veloplan.RoutingOptions) *customModel {
	model := &customModel{}
	if opts.AvoidMotorways {
		model.Priority = append(model.Priority, modelStatement{
			If:         "road_class == MOTORWAY || road_class == TRUNK",
			MultiplyBy: 0,
		})
	}
	if opts.PreferBikeInfra {
		model.Priority = append(model.Priority,
			modelStatement{If: "road_class == CYCLEWAY", MultiplyBy: 1.0},
			modelStatement{ElseIf: "road_class == PRIMARY", MultiplyBy: 0.5},
		)
	}
	if opts.MaxDetourPercent > 0 {
		model.DistanceInfluence = opts.MaxDetourPercent
	}
	return model
}

func decodePoints(encoded string) ([]veloplan.Coordinate, error) {
	pairs, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode points: %w", err)
	}
	coords := make([]veloplan.Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = veloplan.Coordinate{p[1], p[0]}
	}
	return coords, nil
}

func ghProfile(profile string) string {
	switch profile {
	case "foot", "car":
		return profile
	default:
		return "bike"
	}
}

// routeRequest is the POST /route request body.
type routeRequest struct {
	Points         [][]float64  `json:"points"`
	Profile        string       `json:"profile"`
	PointsEncoded  bool         `json:"points_encoded"`
	InstructionsOn bool         `json:"instructions"`
	CHDisable      bool         `json:"ch.disable,omitempty"`
	CustomModel    *customModel `json:"custom_model,omitempty"`
}

type customModel struct {
	Priority          []modelStatement `json:"priority,omitempty"`
	DistanceInfluence float64          `json:"distance_influence,omitempty"`
}

type modelStatement struct {
	If     string `json:"if,omitempty"`
	ElseIf string `json:"else_if,omitempty"`
	// MultiplyBy is always serialized; a zero factor is meaningful.
	MultiplyBy float64 `json:"multiply_by"`
}

// routeResponse is the POST /route response body.
type routeResponse struct {
	Paths []path `json:"paths"`
}

type path struct {
	Distance   float64 `json:"distance"`
	TimeMillis float64 `json:"time"`
	Points     string  `json:"points"`
}
