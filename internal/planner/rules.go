package planner

import (
	"fmt"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/model"
)

const (
	minDrillDiameter = 3.0
	minDrillDepth    = 5.0
)

// RuleBased builds the deterministic plan for spec: one face milling step
// followed by one drilling step per hole in input order. An unknown
// material aborts the plan. The returned warnings describe clamped holes.
func RuleBased(spec model.PartSpec, k *kb.KnowledgeBase) ([]model.PlanStep, []string, error) {
	rpm, feed, err := k.MaterialParams(spec.Material)
	if err != nil {
		return nil, nil, err
	}

	plan := make([]model.PlanStep, 0, len(spec.DrillHoles)+1)
	plan = append(plan, model.PlanStep{
		Operation:        model.FaceMilling,
		DepthMM:          model.Float(DefaultFaceMillDepth),
		Tool:             model.String(k.FaceMillTool()),
		RPM:              model.Int(rpm),
		FeedRateMMPerMin: model.Float(feed),
		Notes:            fmt.Sprintf("Face top surface for %s", spec.Material),
	})

	var warnings []string
	for i, hole := range spec.DrillHoles {
		diameter, depth := hole.DiameterMM, hole.DepthMM
		if diameter <= 0 || depth <= 0 {
			diameter = max(diameter, minDrillDiameter)
			depth = max(depth, minDrillDepth)
			warnings = append(warnings, fmt.Sprintf(
				"hole %d: invalid parameters, using diameter %gmm depth %gmm", i+1, diameter, depth))
		}

		position := append([]float64(nil), hole.Position...)
		if len(position) == 0 {
			position = []float64{0, 0}
		}

		key, _, err := k.ResolveDrillTool(diameter)
		if err != nil {
			return nil, warnings, err
		}

		plan = append(plan, model.PlanStep{
			Operation:        model.Drilling,
			DiameterMM:       model.Float(diameter),
			DepthMM:          model.Float(depth),
			Position:         position,
			Tool:             model.String(key),
			RPM:              model.Int(rpm),
			FeedRateMMPerMin: model.Float(feed),
		})
	}

	return plan, warnings, nil
}
