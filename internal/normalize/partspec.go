package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sourceplane/processagent/internal/model"
)

// ErrInvalidPartSpec marks a part spec that cannot be planned
var ErrInvalidPartSpec = errors.New("invalid part spec")

// PartSpec transforms a raw part spec into canonical form, rejecting
// holes that violate the drill hole invariants
func PartSpec(spec model.PartSpec) (model.PartSpec, error) {
	material := strings.TrimSpace(spec.Material)
	if material == "" {
		return model.PartSpec{}, fmt.Errorf("%w: material is required", ErrInvalidPartSpec)
	}

	normalized := model.PartSpec{Material: material}
	if len(spec.DrillHoles) == 0 {
		return normalized, nil
	}

	normalized.DrillHoles = make([]model.DrillHole, 0, len(spec.DrillHoles))
	for i, hole := range spec.DrillHoles {
		if err := checkHole(hole); err != nil {
			return model.PartSpec{}, fmt.Errorf("%w: drill hole %d: %v", ErrInvalidPartSpec, i, err)
		}
		normalized.DrillHoles = append(normalized.DrillHoles, model.DrillHole{
			DiameterMM: hole.DiameterMM,
			DepthMM:    hole.DepthMM,
			Position:   append([]float64(nil), hole.Position...),
		})
	}

	return normalized, nil
}

func checkHole(hole model.DrillHole) error {
	if !finite(hole.DiameterMM) || hole.DiameterMM <= 0 {
		return fmt.Errorf("diameter_mm must be > 0, got %v", hole.DiameterMM)
	}
	if !finite(hole.DepthMM) || hole.DepthMM <= 0 {
		return fmt.Errorf("depth_mm must be > 0, got %v", hole.DepthMM)
	}
	if len(hole.Position) != 2 {
		return fmt.Errorf("position must have exactly 2 coordinates, got %d", len(hole.Position))
	}
	for _, c := range hole.Position {
		if !finite(c) {
			return fmt.Errorf("position coordinates must be finite")
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
