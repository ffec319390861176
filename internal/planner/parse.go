package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when a model response is not a JSON step array or object
var ErrParse = errors.New("invalid JSON response from model")

// RawStep is one step as the model wrote it, before repair. Every field is
// optional; numbers are accepted as any JSON number.
type RawStep struct {
	Operation        string    `json:"operation"`
	DepthMM          *float64  `json:"depth_mm"`
	DiameterMM       *float64  `json:"diameter_mm"`
	Position         []float64 `json:"position"`
	Tool             *string   `json:"tool"`
	RPM              *float64  `json:"rpm"`
	FeedRateMMPerMin *float64  `json:"feed_rate_mm_per_min"`
	Notes            string    `json:"notes"`

	// decodeErr is set when the element was valid JSON but not step-shaped
	decodeErr error
}

// ParseResponse extracts steps from a model response. Optional ```json
// fences are stripped; a single object is treated as a one-step array.
// Elements that are not step-shaped are kept and rejected later by Repair.
func ParseResponse(text string) ([]RawStep, error) {
	body := []byte(stripFences(text))

	var elements []json.RawMessage
	switch {
	case bytes.HasPrefix(body, []byte("[")):
		if err := json.Unmarshal(body, &elements); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	case bytes.HasPrefix(body, []byte("{")):
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: malformed object", ErrParse)
		}
		elements = []json.RawMessage{body}
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrParse)
	}

	steps := make([]RawStep, 0, len(elements))
	for _, element := range elements {
		var step RawStep
		if err := json.Unmarshal(element, &step); err != nil {
			step = RawStep{decodeErr: err}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
