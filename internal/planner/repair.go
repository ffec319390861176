package planner

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/model"
)

// ErrInvalidStep marks a model step that cannot be repaired
var ErrInvalidStep = errors.New("invalid plan step")

// DefaultFaceMillDepth is the facing depth used when none is given
const DefaultFaceMillDepth = 0.2

// Defaults are the computed values merged into a model step
type Defaults struct {
	RPM  int
	Feed float64
}

// Repair merges raw with defaults into a fully populated plan step, or
// rejects it with ErrInvalidStep. Drill tools missing from raw are resolved
// from k.
func Repair(raw RawStep, defaults Defaults, k *kb.KnowledgeBase) (model.PlanStep, error) {
	if raw.decodeErr != nil {
		return model.PlanStep{}, fmt.Errorf("%w: %v", ErrInvalidStep, raw.decodeErr)
	}

	rpm, err := roundRPM(raw.RPM)
	if err != nil {
		return model.PlanStep{}, err
	}

	op := model.OperationType(strings.ToLower(strings.TrimSpace(raw.Operation)))
	step := model.PlanStep{
		Operation:        op,
		DepthMM:          raw.DepthMM,
		DiameterMM:       raw.DiameterMM,
		Position:         raw.Position,
		Tool:             raw.Tool,
		RPM:              rpm,
		FeedRateMMPerMin: raw.FeedRateMMPerMin,
		Notes:            raw.Notes,
	}
	if step.Tool != nil && strings.TrimSpace(*step.Tool) == "" {
		step.Tool = nil
	}

	if !op.Valid() {
		if op == "" {
			return model.PlanStep{}, fmt.Errorf("%w: missing operation", ErrInvalidStep)
		}
		return model.PlanStep{}, fmt.Errorf("%w: unknown operation %q", ErrInvalidStep, raw.Operation)
	}

	switch op {
	case model.FaceMilling:
		if step.DepthMM == nil {
			step.DepthMM = model.Float(DefaultFaceMillDepth)
		}
		if step.Tool == nil {
			step.Tool = model.String(kb.DefaultFaceMillTool)
		}
	case model.Drilling:
		if step.DiameterMM == nil {
			return model.PlanStep{}, fmt.Errorf("%w: drilling requires diameter_mm", ErrInvalidStep)
		}
		if step.DepthMM == nil {
			return model.PlanStep{}, fmt.Errorf("%w: drilling requires depth_mm", ErrInvalidStep)
		}
		if len(step.Position) == 0 {
			return model.PlanStep{}, fmt.Errorf("%w: drilling requires position", ErrInvalidStep)
		}
		if step.Tool != nil && *step.Tool != kb.UnknownTool {
			// a drill the knowledge base does not know is re-resolved
			if t, ok := k.Tool(*step.Tool); !ok || !t.IsDrill() {
				step.Tool = nil
			}
		}
		if step.Tool == nil {
			key, _, err := k.ResolveDrillTool(*step.DiameterMM)
			if err != nil {
				return model.PlanStep{}, fmt.Errorf("%w: %v", ErrInvalidStep, err)
			}
			step.Tool = model.String(key)
		}
	}

	if step.RPM == nil {
		step.RPM = model.Int(defaults.RPM)
	}
	if step.FeedRateMMPerMin == nil {
		step.FeedRateMMPerMin = model.Float(defaults.Feed)
	}
	return step, nil
}

// roundRPM rounds a model rpm to an integer, rejecting values that do not
// fit an int32
func roundRPM(v *float64) (*int, error) {
	if v == nil {
		return nil, nil
	}
	r := math.Round(*v)
	if math.IsNaN(r) || r > math.MaxInt32 || r < math.MinInt32 {
		return nil, fmt.Errorf("%w: rpm %g out of range", ErrInvalidStep, *v)
	}
	return model.Int(int(r)), nil
}
