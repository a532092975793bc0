// Package openweather provides current conditions from the OpenWeatherMap
// API for ride scoring.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	veloplan "github.com/veloplan/veloplan"
)

// Client talks to OpenWeatherMap. It implements veloplan.WeatherService.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an OpenWeatherMap API client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CurrentConditions retrieves the current weather at the coordinates.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (*veloplan.WeatherConditions, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", lat))
	params.Set("lon", fmt.Sprintf("%.6f", lon))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	requestURL := fmt.Sprintf("%s/data/2.5/weather?%s", c.baseURL, params.Encode())

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
		return nil, fmt.Errorf("rate limit exceeded (60/minute)")
	}
	if resp.StatusCode == 401 {
		return nil, fmt.Errorf("invalid API key")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var description string
	if len(response.Weather) > 0 {
		description = response.Weather[0].Description
	}

	return &veloplan.WeatherConditions{
		TemperatureC: response.Main.Temp,
		// The metric API reports wind in m/s.
		WindSpeedKmh:         response.Wind.Speed * 3.6,
		WindDirectionDegrees: float64(response.Wind.Deg),
		Description:          description,
		HumidityPercent:      float64(response.Main.Humidity),
	}, nil
}

// currentWeatherResponse is the /data/2.5/weather response shape.
type currentWeatherResponse struct {
	Weather []weatherCondition `json:"weather"`
	Main    weatherMain        `json:"main"`
	Wind    weatherWind        `json:"wind"`
	Name    string             `json:"name"`
}

type weatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type weatherMain struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type weatherWind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}
