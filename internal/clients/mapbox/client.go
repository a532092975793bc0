// Package mapbox implements routing against the Mapbox Map Matching and
// Directions APIs.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	veloplan "github.com/veloplan/veloplan"
)

// Client talks to the Mapbox v5 APIs. It implements veloplan.RoutingService.
type Client struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
}

// NewClient creates a Mapbox API client.
func NewClient(accessToken string) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     "https://api.mapbox.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// polyline6Codec decodes Mapbox's precision-6 encoded geometries, which come
// back in [lat, lng] order.
var polyline6Codec = polyline.Codec{Dim: 2, Scale: 1e6}

// MatchToRoads snaps the waypoints onto the road network via the Map
// Matching API. The same radius is applied to every waypoint.
func (c *Client) MatchToRoads(ctx context.Context, waypoints []veloplan.Coordinate, radiusMeters float64, profile string) (*veloplan.RouteResult, error) {
	radii := make([]string, len(waypoints))
	for i := range radii {
		radii[i] = strconv.FormatFloat(radiusMeters, 'f', 0, 64)
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("geometries", "polyline6")
	params.Set("overview", "full")
	params.Set("radiuses", strings.Join(radii, ";"))

	requestURL := fmt.Sprintf("%s/matching/v5/mapbox/%s/%s?%s",
		c.baseURL, mapboxProfile(profile), coordinatePath(waypoints), params.Encode())

	var response matchResponse
	if err := c.get(ctx, requestURL, &response); err != nil {
		return nil, err
	}
	if response.Code != "Ok" || len(response.Matchings) == 0 {
		return nil, fmt.Errorf("no match found: %s", response.Code)
	}

	best := response.Matchings[0]
	coords, err := decodeGeometry(best.Geometry)
	if err != nil {
		return nil, err
	}
	return &veloplan.RouteResult{
		Coordinates:     coords,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Confidence:      best.Confidence,
	}, nil
}

// Route requests a directions-style path through the ordered waypoints.
func (c *Client) Route(ctx context.Context, waypoints []veloplan.Coordinate, profile string, opts veloplan.RoutingOptions) (*veloplan.RouteResult, error) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("geometries", "polyline6")
	params.Set("overview", "full")
	if opts.AvoidMotorways {
		params.Set("exclude", "motorway")
	}

	requestURL := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s",
		c.baseURL, mapboxProfile(profile), coordinatePath(waypoints), params.Encode())

	var response directionsResponse
	if err := c.get(ctx, requestURL, &response); err != nil {
		return nil, err
	}
	if response.Code != "Ok" || len(response.Routes) == 0 {
		return nil, fmt.Errorf("no route found: %s", response.Code)
	}

	best := response.Routes[0]
	coords, err := decodeGeometry(best.Geometry)
	if err != nil {
		return nil, err
	}
	return &veloplan.RouteResult{
		Coordinates:     coords,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}

func (c *Client) get(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 {
		return fmt.Errorf("invalid access token")
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// coordinatePath renders waypoints as the lon,lat;lon,lat path segment the
// v5 APIs expect.
func coordinatePath(waypoints []veloplan.Coordinate) string {
	parts := make([]string, len(waypoints))
	for i, w := range waypoints {
		parts[i] = fmt.Sprintf("%.6f,%.6f", w.Lon(), w.Lat())
	}
	return strings.Join(parts, ";")
}

func decodeGeometry(encoded string) ([]veloplan.Coordinate, error) {
	pairs, _, err := polyline6Codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	coords := make([]veloplan.Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = veloplan.Coordinate{p[1], p[0]}
	}
	return coords, nil
}

func mapboxProfile(profile string) string {
	switch profile {
	case "walking", "driving":
		return profile
	default:
		return "cycling"
	}
}

// matchResponse is the Map Matching API response shape.
type matchResponse struct {
	Code      string     `json:"code"`
	Matchings []matching `json:"matchings"`
}

type matching struct {
	Geometry   string  `json:"geometry"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// directionsResponse is the Directions API response shape.
type directionsResponse struct {
	Code   string  `json:"code"`
	Routes []route `json:"routes"`
}

type route struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
