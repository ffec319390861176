package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/processagent/internal/model"
	"gopkg.in/yaml.v3"
)

// Renderer serializes plan results and their programs
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON renders result as JSON
func (r *Renderer) RenderJSON(result model.PlanResult) ([]byte, error) {
	return json.MarshalIndent(normalizeResult(result), "", "  ")
}

// RenderYAML renders result as YAML
func (r *Renderer) RenderYAML(result model.PlanResult) ([]byte, error) {
	return yaml.Marshal(normalizeResult(result))
}

// WriteResult writes result to file (JSON or YAML based on extension)
func (r *Renderer) WriteResult(result model.PlanResult, path string) error {
	var data []byte
	var err error

	// Determine format from extension
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = r.RenderYAML(result)
	default:
		data, err = r.RenderJSON(result)
	}
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}

	return writeFile(path, data)
}

// WriteProgram writes the generated program next to the result. Results
// without a program are skipped.
func (r *Renderer) WriteProgram(result model.PlanResult, path string) (bool, error) {
	if result.GCode == nil {
		return false, nil
	}
	if err := writeFile(path, []byte(*result.GCode+"\n")); err != nil {
		return false, err
	}
	return true, nil
}

// ProgramPath returns the .nc path that belongs to a result path
func ProgramPath(resultPath string) string {
	return strings.TrimSuffix(resultPath, filepath.Ext(resultPath)) + ".nc"
}

// DebugDump outputs debug information about the result
func (r *Renderer) DebugDump(result model.PlanResult) string {
	output := fmt.Sprintf("Run: %s (strategy: %s)\n", result.RunID, result.Strategy)
	output += fmt.Sprintf("Valid: %t\n", result.Valid)
	output += fmt.Sprintf("Steps: %d\n\n", len(result.Plan))

	for i, step := range result.Plan {
		output += fmt.Sprintf("Step %d: %s\n", i, step.Operation)
		output += fmt.Sprintf("  Tool: %s\n", derefString(step.Tool, "-"))
		output += fmt.Sprintf("  Depth: %s\n", derefFloat(step.DepthMM, "-"))
		if step.Operation == model.Drilling {
			output += fmt.Sprintf("  Diameter: %s\n", derefFloat(step.DiameterMM, "-"))
			output += fmt.Sprintf("  Position: %v\n", step.Position)
		}
		output += fmt.Sprintf("  RPM: %s\n", derefInt(step.RPM, "-"))
		output += fmt.Sprintf("  Feed: %s\n", derefFloat(step.FeedRateMMPerMin, "-"))
		output += "\n"
	}

	if result.GCode != nil {
		output += fmt.Sprintf("Program: %d lines\n", strings.Count(*result.GCode, "\n")+1)
	} else {
		output += "Program: none\n"
	}
	for _, e := range result.Errors {
		output += fmt.Sprintf("Error: %s\n", e)
	}

	return output
}

// normalizeResult keeps plan and errors as arrays on the wire
func normalizeResult(result model.PlanResult) model.PlanResult {
	if result.Plan == nil {
		result.Plan = []model.PlanStep{}
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result
}

func writeFile(path string, data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
