package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sourceplane/processagent/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// PlanViewer provides human-readable visualization of a plan result
type PlanViewer struct {
	result model.PlanResult
}

// NewPlanViewer creates a new plan viewer
func NewPlanViewer(result model.PlanResult) *PlanViewer {
	return &PlanViewer{result: result}
}

// ViewPlan returns a tree view of the plan steps followed by a summary
func (pv *PlanViewer) ViewPlan() string {
	steps := pv.result.Plan
	if len(steps) == 0 {
		return "No steps in plan"
	}

	var sb strings.Builder
	for i, step := range steps {
		isLast := i == len(steps)-1

		prefix := "├─ "
		connector := "│  "
		if isLast {
			prefix = "└─ "
			connector = "   "
		}

		sb.WriteString(fmt.Sprintf("%s[%d] %s%s\n", prefix, i, step.Operation, describe(step)))

		details := stepDetails(step)
		for j, detail := range details {
			detailPrefix := connector + "├─ "
			if j == len(details)-1 {
				detailPrefix = connector + "└─ "
			}
			sb.WriteString(detailPrefix + detail + "\n")
		}
	}

	sb.WriteString(rule + "\n")
	sb.WriteString(pv.summary() + "\n")

	return sb.String()
}

// ViewErrors lists the result's errors, one per line
func (pv *PlanViewer) ViewErrors() string {
	if len(pv.result.Errors) == 0 {
		return "No errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Errors (%d)\n", len(pv.result.Errors)))
	sb.WriteString(rule + "\n")
	for _, e := range pv.result.Errors {
		sb.WriteString("  ✗ " + e + "\n")
	}
	return sb.String()
}

func (pv *PlanViewer) summary() string {
	counts := make(map[model.OperationType]int)
	for _, step := range pv.result.Plan {
		counts[step.Operation]++
	}

	parts := make([]string, 0, len(model.Operations))
	for _, op := range model.Operations {
		if counts[op] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[op], op))
		}
	}

	status := "valid"
	if !pv.result.Valid {
		status = "invalid"
	}

	line := fmt.Sprintf("Summary: %d steps (%s), %s", len(pv.result.Plan), strings.Join(parts, ", "), status)
	if pv.result.Strategy != "" {
		line += fmt.Sprintf(", strategy: %s", pv.result.Strategy)
	}
	return line
}

// describe renders the geometry of a step on its header line
func describe(step model.PlanStep) string {
	var parts []string
	if step.DiameterMM != nil {
		parts = append(parts, "Ø"+formatMM(*step.DiameterMM))
	}
	if step.DepthMM != nil {
		parts = append(parts, "depth "+formatMM(*step.DepthMM))
	}
	if len(step.Position) == 2 {
		parts = append(parts, fmt.Sprintf("@ (%s, %s)", formatNumber(step.Position[0]), formatNumber(step.Position[1])))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}

func stepDetails(step model.PlanStep) []string {
	var details []string
	if step.Tool != nil {
		details = append(details, "tool: "+*step.Tool)
	}
	if step.RPM != nil || step.FeedRateMMPerMin != nil {
		details = append(details, fmt.Sprintf("speed: S%s F%s",
			derefInt(step.RPM, "default"), derefFloat(step.FeedRateMMPerMin, "default")))
	}
	if step.Notes != "" {
		details = append(details, "notes: "+step.Notes)
	}
	return details
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMM(v float64) string {
	return formatNumber(v) + "mm"
}

func derefString(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func derefFloat(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return formatNumber(*v)
}

func derefInt(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}
