// Package gcode compiles plans into pseudo-G-code programs.
package gcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/model"
	"go.uber.org/zap"
)

const (
	// HeaderMarker appears in the first line of every generated program
	HeaderMarker = "PSEUDO-GCODE"
	// TerminatorMarker ends every generated program
	TerminatorMarker = "M30"

	defaultDrillDiameter = 3.0
	defaultDrillDepth    = 10.0
	faceMillDepth        = 0.2
)

// Generator turns plan steps into program text
type Generator struct {
	kb     *kb.KnowledgeBase
	logger *zap.Logger
}

// New creates a generator over the knowledge base
func New(k *kb.KnowledgeBase, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{kb: k, logger: logger}
}

// Generate emits the program for steps. Output depends only on its inputs.
// An unknown material falls back to the default speeds and feeds; the only
// error is a drilling step whose tool cannot be resolved.
func (g *Generator) Generate(steps []model.PlanStep, material string) (string, error) {
	rpm, feed, err := g.kb.MaterialParams(material)
	if err != nil {
		g.logger.Warn("unknown material, using default speeds and feeds",
			zap.String("material", material),
			zap.Int("rpm", kb.DefaultRPM),
			zap.Float64("feed", kb.DefaultFeed))
		rpm, feed = kb.DefaultRPM, kb.DefaultFeed
	}

	spindle := rpm
	if len(steps) > 0 && steps[0].RPM != nil {
		spindle = *steps[0].RPM
	}

	lines := []string{
		"; " + HeaderMarker + " GENERATED",
		"; MATERIAL: " + material,
		"G90 G21",
		fmt.Sprintf("M03 S%d", spindle),
	}

	for i, step := range steps {
		stepFeed := feed
		if step.FeedRateMMPerMin != nil {
			stepFeed = *step.FeedRateMMPerMin
		}
		stepRPM := rpm
		if step.RPM != nil {
			stepRPM = *step.RPM
		}

		switch step.Operation {
		case model.FaceMilling:
			lines = append(lines, g.faceMill(step, stepRPM, stepFeed)...)
		case model.Drilling:
			block, err := g.drill(step, stepFeed)
			if err != nil {
				return "", fmt.Errorf("step %d: %w", i, err)
			}
			lines = append(lines, block...)
		default:
			lines = append(lines, fmt.Sprintf("; Unsupported operation: %s", step.Operation))
		}
	}

	lines = append(lines, "M05", TerminatorMarker)
	return strings.Join(lines, "\n"), nil
}

func (g *Generator) faceMill(step model.PlanStep, rpm int, feed float64) []string {
	depth := faceMillDepth
	if step.DepthMM != nil {
		depth = *step.DepthMM
	}
	tool := g.kb.FaceMillTool()
	if step.Tool != nil {
		tool = *step.Tool
	}

	// fixed square sweep over the stock top
	return []string{
		"; -- Face Milling --",
		fmt.Sprintf("; TOOL %s S%d F%s", tool, rpm, formatFeed(feed)),
		"G00 X0 Y0 Z5",
		fmt.Sprintf("G01 Z-%.3f F%s", depth, formatFeed(feed)),
		"G01 X50 Y0",
		"G01 X50 Y50",
		"G01 X0 Y50",
		"G01 X0 Y0",
		"G00 Z5",
	}
}

func (g *Generator) drill(step model.PlanStep, feed float64) ([]string, error) {
	diameter := defaultDrillDiameter
	if step.DiameterMM != nil {
		diameter = *step.DiameterMM
	}
	depth := defaultDrillDepth
	if step.DepthMM != nil {
		depth = *step.DepthMM
	}
	var x, y float64
	if len(step.Position) >= 2 {
		x, y = step.Position[0], step.Position[1]
	}

	key, tool, err := g.drillTool(step, diameter)
	if err != nil {
		return nil, err
	}
	dia := "?"
	if tool.DiameterMM != nil {
		dia = formatFeed(*tool.DiameterMM)
	}

	return []string{
		"; -- Drilling --",
		fmt.Sprintf("; TOOL %s DIA %smm", key, dia),
		fmt.Sprintf("G00 X%.3f Y%.3f Z5", x, y),
		fmt.Sprintf("G01 Z-%.3f F%s", depth, formatFeed(feed)),
		"G00 Z5",
	}, nil
}

func (g *Generator) drillTool(step model.PlanStep, diameter float64) (string, kb.Tool, error) {
	if step.Tool != nil && *step.Tool != "" && *step.Tool != kb.UnknownTool {
		tool, ok := g.kb.Tool(*step.Tool)
		if !ok {
			g.logger.Warn("drill tool not in knowledge base",
				zap.String("tool", *step.Tool),
				zap.Float64("diameter_mm", diameter))
		}
		return *step.Tool, tool, nil
	}
	return g.kb.ResolveDrillTool(diameter)
}

// formatFeed renders v as the shortest exact decimal
func formatFeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
