package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	veloplan "github.com/veloplan/veloplan"
)

// RouteSuggestion is one parsed route idea from the reasoning service.
type RouteSuggestion struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	EstimatedDistanceKm  float64  `json:"estimatedDistance"`
	EstimatedElevationM  float64  `json:"estimatedElevation"`
	Difficulty           string   `json:"difficulty"`
	KeyDirections        []string `json:"keyDirections"`
	TrainingFocus        string   `json:"trainingFocus"`
	EstimatedTimeMinutes float64  `json:"estimatedTime"`
}

// DifficultyValue maps the free-text difficulty onto the typed enum,
// defaulting to moderate for anything unrecognized.
func (s RouteSuggestion) DifficultyValue() veloplan.Difficulty {
	switch strings.ToLower(strings.TrimSpace(s.Difficulty)) {
	case "easy":
		return veloplan.DifficultyEasy
	case "hard":
		return veloplan.DifficultyHard
	default:
		return veloplan.DifficultyModerate
	}
}

// ErrNoSuggestions indicates the raw text held no usable JSON array.
var ErrNoSuggestions = errors.New("suggest: no route suggestions found in response")

// ParseSuggestions extracts the first JSON array from the raw model output
// and validates each element. Models occasionally wrap the array in prose
// or code fences; both are tolerated. A malformed or empty result is an
// error for the caller to downgrade to zero suggestions.
func ParseSuggestions(raw string) ([]RouteSuggestion, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, ErrNoSuggestions
	}

	var parsed []RouteSuggestion
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("suggest: malformed suggestion JSON: %w", err)
	}

	var out []RouteSuggestion
	for _, s := range parsed {
		if s.Name == "" || s.EstimatedDistanceKm <= 0 || len(s.KeyDirections) == 0 {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSuggestions
	}
	return out, nil
}

// extractJSONArray returns the first balanced top-level JSON array in the
// text, or "" when none exists.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
