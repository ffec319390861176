// Package validate checks plans, and plans paired with their generated
// program, for structural problems.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/sourceplane/processagent/internal/gcode"
	"github.com/sourceplane/processagent/internal/model"
)

// PlanLevel is the Step value of findings not tied to a single step
const PlanLevel = -1

// Check names
const (
	CheckPlanEmpty         = "plan_empty"
	CheckOperation         = "operation"
	CheckDepth             = "depth"
	CheckDiameter          = "diameter"
	CheckPosition          = "position"
	CheckTool              = "tool"
	CheckRPM               = "rpm"
	CheckFeed              = "feed"
	CheckProgramEmpty      = "program_empty"
	CheckProgramHeader     = "program_header"
	CheckProgramTerminator = "program_terminator"
)

// Finding is one validation failure
type Finding struct {
	Step    int    // zero-based step index, or PlanLevel
	Check   string // one of the Check* names
	Message string
}

func (f Finding) String() string {
	if f.Step == PlanLevel {
		return f.Message
	}
	return fmt.Sprintf("step %d: %s", f.Step, f.Message)
}

// Report is the verdict for one validation pass
type Report struct {
	Valid    bool
	Findings []Finding
}

// Errors renders the findings as strings, never nil
func (r Report) Errors() []string {
	errs := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		errs = append(errs, f.String())
	}
	return errs
}

// Plan runs the structural checks
func Plan(steps []model.PlanStep) Report {
	return check(steps, nil)
}

// Program runs the structural checks plus the generated program checks
func Program(steps []model.PlanStep, program string) Report {
	return check(steps, &program)
}

// check collects every finding; it never stops at the first one. Findings
// are ordered plan-level first, then by step index, then program-level.
func check(steps []model.PlanStep, program *string) Report {
	var findings []Finding

	if len(steps) == 0 {
		findings = append(findings, Finding{Step: PlanLevel, Check: CheckPlanEmpty, Message: "plan is empty"})
	}

	for i, step := range steps {
		findings = append(findings, checkStep(i, step)...)
	}

	if program != nil {
		findings = append(findings, checkProgram(*program)...)
	}

	return Report{Valid: len(findings) == 0, Findings: findings}
}

func checkStep(idx int, step model.PlanStep) []Finding {
	var findings []Finding
	add := func(check, format string, args ...interface{}) {
		findings = append(findings, Finding{Step: idx, Check: check, Message: fmt.Sprintf(format, args...)})
	}

	switch step.Operation {
	case model.FaceMilling:
		if step.DepthMM == nil {
			add(CheckDepth, "face_milling requires depth_mm > 0")
		}
	case model.Drilling:
		if step.DiameterMM == nil || !positive(*step.DiameterMM) {
			add(CheckDiameter, "drilling requires diameter_mm > 0")
		}
		if !validPosition(step.Position) {
			add(CheckPosition, "drilling requires position [x, y]")
		}
		if step.DepthMM == nil {
			add(CheckDepth, "drilling requires depth_mm > 0")
		}
	default:
		add(CheckOperation, "unsupported operation '%s'", step.Operation)
	}

	if step.DepthMM != nil && !positive(*step.DepthMM) {
		add(CheckDepth, "depth_mm must be > 0")
	}
	if step.Tool != nil && strings.TrimSpace(*step.Tool) == "" {
		add(CheckTool, "tool must not be blank")
	}
	if step.RPM != nil && *step.RPM <= 0 {
		add(CheckRPM, "rpm must be > 0")
	}
	if step.FeedRateMMPerMin != nil && !positive(*step.FeedRateMMPerMin) {
		add(CheckFeed, "feed_rate_mm_per_min must be > 0")
	}

	return findings
}

func checkProgram(program string) []Finding {
	if strings.TrimSpace(program) == "" {
		return []Finding{{Step: PlanLevel, Check: CheckProgramEmpty, Message: "program is empty"}}
	}

	var findings []Finding
	if !strings.Contains(program, gcode.HeaderMarker) {
		findings = append(findings, Finding{Step: PlanLevel, Check: CheckProgramHeader, Message: "program missing header"})
	}
	if !strings.Contains(program, gcode.TerminatorMarker) {
		findings = append(findings, Finding{Step: PlanLevel, Check: CheckProgramTerminator, Message: "program missing terminator"})
	}
	return findings
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func validPosition(position []float64) bool {
	if len(position) != 2 {
		return false
	}
	for _, c := range position {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
