package suggest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veloplan "github.com/veloplan/veloplan"
)

const goodResponse = `[
  {
    "name": "Cherry Creek Spin",
    "description": "Flat river-path cruise east of downtown.",
    "estimatedDistance": 35,
    "estimatedElevation": 180,
    "difficulty": "easy",
    "keyDirections": ["head southeast along the creek for 12km", "loop north through the park", "return west to start"],
    "trainingFocus": "steady endurance",
    "estimatedTime": 85
  },
  {
    "name": "Lookout Ramp",
    "description": "Sustained climbing west of the city.",
    "estimatedDistance": 42,
    "estimatedElevation": 750,
    "difficulty": "hard",
    "keyDirections": ["ride west toward the foothills", "climb the switchbacks", "descend and return east"],
    "trainingFocus": "threshold climbing",
    "estimatedTime": 120
  }
]`

func TestParseSuggestions_CleanArray(t *testing.T) {
	suggestions, err := ParseSuggestions(goodResponse)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "Cherry Creek Spin", suggestions[0].Name)
	assert.Equal(t, 35.0, suggestions[0].EstimatedDistanceKm)
	assert.Equal(t, veloplan.DifficultyEasy, suggestions[0].DifficultyValue())
	assert.Len(t, suggestions[0].KeyDirections, 3)
	assert.Equal(t, veloplan.DifficultyHard, suggestions[1].DifficultyValue())
}

func TestParseSuggestions_ArrayWrappedInProse(t *testing.T) {
	wrapped := "Here are some routes you might enjoy:\n```json\n" + goodResponse + "\n```\nEnjoy the ride!"
	suggestions, err := ParseSuggestions(wrapped)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestParseSuggestions_BracketsInsideStrings(t *testing.T) {
	tricky := `[{"name": "Brackets [test] ride", "description": "d", "estimatedDistance": 20,
		"estimatedElevation": 100, "difficulty": "moderate",
		"keyDirections": ["go north]"], "trainingFocus": "f", "estimatedTime": 50}]`
	suggestions, err := ParseSuggestions(tricky)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Brackets [test] ride", suggestions[0].Name)
}

func TestParseSuggestions_Malformed(t *testing.T) {
	cases := map[string]string{
		"no json":         "Sorry, I cannot help with that.",
		"truncated":       `[{"name": "Half a route", "estimatedDistance": 30`,
		"not an array":    `{"name": "Object instead"}`,
		"empty array":     `[]`,
		"missing fields":  `[{"description": "no name or directions", "estimatedDistance": 10}]`,
		"zero distance":   `[{"name": "r", "estimatedDistance": 0, "keyDirections": ["north"]}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			suggestions, err := ParseSuggestions(raw)
			assert.Error(t, err)
			assert.Empty(t, suggestions)
		})
	}
}

func TestParseSuggestions_SkipsInvalidKeepsValid(t *testing.T) {
	mixed := `[
		{"name": "", "estimatedDistance": 30, "keyDirections": ["x"]},
		{"name": "Good", "estimatedDistance": 30, "keyDirections": ["head north for 10km"], "difficulty": "easy", "estimatedTime": 70}
	]`
	suggestions, err := ParseSuggestions(mixed)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Good", suggestions[0].Name)
}

func TestBuildPrompt(t *testing.T) {
	req := veloplan.GenerateRequest{
		Start:             veloplan.Coordinate{-104.99, 39.74},
		TimeBudgetMinutes: 90,
		TrainingGoal:      veloplan.GoalEndurance,
		TrafficTolerance:  veloplan.TrafficLow,
	}
	profile := veloplan.DefaultProfile()
	profile.PreferredDirections = []float64{90, 135}
	weather := &veloplan.WeatherConditions{
		Description:          "clear sky",
		TemperatureC:         22,
		WindSpeedKmh:         14,
		WindDirectionDegrees: 270,
	}

	prompt := BuildPrompt(req, profile, weather)
	assert.Contains(t, prompt, "39.74")
	assert.Contains(t, prompt, "90 minutes")
	assert.Contains(t, prompt, "endurance")
	assert.Contains(t, prompt, "about 38 km")
	assert.Contains(t, prompt, "clear sky")
	assert.Contains(t, prompt, "E, SE")
	assert.Contains(t, prompt, "Traffic tolerance: low")
}

func TestBuildPrompt_NoWeatherNoDirections(t *testing.T) {
	req := veloplan.GenerateRequest{
		Start:             veloplan.Coordinate{-104.99, 39.74},
		TimeBudgetMinutes: 60,
		TrainingGoal:      veloplan.GoalRecovery,
	}

	prompt := BuildPrompt(req, veloplan.DefaultProfile(), nil)
	assert.NotContains(t, prompt, "Current weather")
	assert.Contains(t, prompt, "recovery")
}

func TestNewSuggester_EmptyKeyFailsOnUse(t *testing.T) {
	s := NewSuggester("", "gpt-4o-mini")
	_, err := s.SuggestRoutes(context.Background(), "prompt")
	assert.Error(t, err)
}
