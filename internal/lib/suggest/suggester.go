// Package suggest adapts an external LLM into route ideas. The model is
// asked for a strict JSON array of route suggestions; anything malformed is
// reported as a parse error that the synthesis layer treats as zero
// suggestions, never as a failure of the overall generation.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	veloplan "github.com/veloplan/veloplan"
)

// SystemPrompt instructs the model to act as a cycling coach and return
// structured route ideas only.
const SystemPrompt = `You are an experienced cycling coach and route designer. Given a rider's location, time budget, training goal, weather and riding history summary, propose cycling routes.

Instructions:
- Propose 2 to 4 distinct route ideas that fit the time budget and training goal.
- Key directions are coarse legs like "head northwest for 8km", "turn east toward the river", "return south to start".
- Distances are realistic road distances in kilometers, not straight lines.
- Prefer terrain that matches the goal: climbing for hills, flat and steady for recovery.

Return ONLY a valid JSON array, no prose, where each element has these exact fields:
- name (string) - short evocative route name
- description (string) - 1-2 sentence summary of the route character
- estimatedDistance (number) - kilometers
- estimatedElevation (number) - meters of climbing
- difficulty (string) - "easy" | "moderate" | "hard"
- keyDirections (array of strings) - 3-6 coarse legs as above
- trainingFocus (string) - what the route trains
- estimatedTime (number) - minutes`

// Suggester calls OpenAI chat completions to generate route ideas. The
// client is constructed explicitly and injected into the planner; there is
// no package-level singleton.
type Suggester struct {
	client *openai.Client
	model  string
}

// NewSuggester creates a Suggester. An empty API key produces a client that
// errors on use, which the synthesis layer absorbs as zero suggestions.
func NewSuggester(apiKey, model string) *Suggester {
	if apiKey == "" {
		return &Suggester{client: nil, model: model}
	}
	return &Suggester{client: openai.NewClient(apiKey), model: model}
}

// SuggestRoutes sends the structured prompt and returns the raw model text.
func (s *Suggester) SuggestRoutes(ctx context.Context, structuredPrompt string) (string, error) {
	if s.client == nil {
		return "", errors.New("reasoning client not initialized - missing API key")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: structuredPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", fmt.Errorf("reasoning service error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from reasoning service")
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildPrompt renders the generation request, rider profile and weather
// into the structured description the model receives.
func BuildPrompt(req veloplan.GenerateRequest, profile veloplan.RidingProfile, weather *veloplan.WeatherConditions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Start location: latitude %.5f, longitude %.5f\n", req.Start.Lat(), req.Start.Lon())
	fmt.Fprintf(&b, "Time budget: %d minutes\n", req.TimeBudgetMinutes)
	fmt.Fprintf(&b, "Training goal: %s\n", req.TrainingGoal)
	fmt.Fprintf(&b, "Target distance: about %.0f km\n", req.TargetDistanceKm())
	if req.ShapePreference != "" {
		fmt.Fprintf(&b, "Preferred route shape: %s\n", req.ShapePreference)
	}
	if req.TrafficTolerance != "" {
		fmt.Fprintf(&b, "Traffic tolerance: %s\n", req.TrafficTolerance)
	}

	if weather != nil {
		fmt.Fprintf(&b, "Current weather: %s, %.0f C, wind %.0f km/h from %.0f degrees\n",
			weather.Description, weather.TemperatureC, weather.WindSpeedKmh, weather.WindDirectionDegrees)
	}

	fmt.Fprintf(&b, "Rider history: typical ride %.0f km, %s terrain preference",
		profile.PreferredDistance.MeanKm, profile.ElevationStyle)
	if len(profile.PreferredDirections) > 0 {
		fmt.Fprintf(&b, ", usually rides toward %s", compassNames(profile.PreferredDirections))
	}
	b.WriteString("\n")

	return b.String()
}

var compassLabels = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func compassNames(bearings []float64) string {
	names := make([]string, len(bearings))
	for i, b := range bearings {
		idx := int((b+22.5)/45) % 8
		names[i] = compassLabels[idx]
	}
	return strings.Join(names, ", ")
}
