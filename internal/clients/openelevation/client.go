// Package openelevation provides elevation lookups against the free
// Open-Elevation and OpenTopoData services. Both implement
// veloplan.ElevationService so the elevation layer can try them in order.
package openelevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	veloplan "github.com/veloplan/veloplan"
)

// Client queries the Open-Elevation lookup API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an Open-Elevation client.
func NewClient() *Client {
	return &Client{
		baseURL: "https://api.open-elevation.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ElevationsFor returns elevations for the coordinates in input order.
func (c *Client) ElevationsFor(ctx context.Context, coordinates []veloplan.Coordinate) ([]veloplan.ElevationSample, error) {
	locations := make([]lookupLocation, len(coordinates))
	for i, coord := range coordinates {
		locations[i] = lookupLocation{Latitude: coord.Lat(), Longitude: coord.Lon()}
	}

	payload, err := json.Marshal(lookupRequest{Locations: locations})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	requestURL := c.baseURL + "/api/v1/lookup"
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

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	samples := make([]veloplan.ElevationSample, len(response.Results))
	for i, r := range response.Results {
		samples[i] = veloplan.ElevationSample{
			Coordinate:      veloplan.Coordinate{r.Longitude, r.Latitude},
			ElevationMeters: r.Elevation,
		}
	}
	return samples, nil
}

// TopoClient queries the OpenTopoData SRTM dataset. It is the secondary
// elevation source.
type TopoClient struct {
	httpClient *http.Client
	baseURL    string
	dataset    string
}

// NewTopoClient creates an OpenTopoData client over the srtm90m dataset.
func NewTopoClient() *TopoClient {
	return &TopoClient{
		baseURL: "https://api.opentopodata.org",
		dataset: "srtm90m",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ElevationsFor returns elevations for the coordinates in input order.
func (c *TopoClient) ElevationsFor(ctx context.Context, coordinates []veloplan.Coordinate) ([]veloplan.ElevationSample, error) {
	locs := make([]string, len(coordinates))
	for i, coord := range coordinates {
		locs[i] = fmt.Sprintf("%.6f,%.6f", coord.Lat(), coord.Lon())
	}

	params := url.Values{}
	params.Set("locations", strings.Join(locs, "|"))
	requestURL := fmt.Sprintf("%s/v1/%s?%s", c.baseURL, c.dataset, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response topoResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Status != "OK" {
		return nil, fmt.Errorf("lookup failed: %s", response.Status)
	}

	samples := make([]veloplan.ElevationSample, len(response.Results))
	for i, r := range response.Results {
		samples[i] = veloplan.ElevationSample{
			Coordinate:      veloplan.Coordinate{r.Location.Lng, r.Location.Lat},
			ElevationMeters: r.Elevation,
		}
	}
	return samples, nil
}

// lookupRequest is the Open-Elevation POST body.
type lookupRequest struct {
	Locations []lookupLocation `json:"locations"`
}

type lookupLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// lookupResponse is the Open-Elevation response body.
type lookupResponse struct {
	Results []lookupResult `json:"results"`
}

type lookupResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// topoResponse is the OpenTopoData response body.
type topoResponse struct {
	Status  string       `json:"status"`
	Results []topoResult `json:"results"`
}

type topoResult struct {
	Elevation float64      `json:"elevation"`
	Location  topoLocation `json:"location"`
}

type topoLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
