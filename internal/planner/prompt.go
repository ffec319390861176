package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/model"
)

const promptText = `You are an expert CNC machining process planner. Your task is to generate a structured machining plan based on the given specifications.

**Part Specification:**
- Material: {{ .Material }}
{{ if .Holes }}
Drill holes to create:
{{- range .Holes }}
  {{ .Index }}. Diameter: {{ .Diameter }}mm, Depth: {{ .Depth }}mm, Position: {{ .Position }}
{{- end }}
{{ else }}
No specific drill holes specified.
{{ end }}
**Available Machining Database:**

Materials:
{{ .Materials }}

Tools:
{{ .Tools }}

Operations:
{{ .Operations }}

**Instructions:**
1. Analyze the part specification and determine the required machining operations.
2. For face milling: Always start with a face milling operation to prepare the surface. Use appropriate tool, RPM, and feed rate from the database based on the material.
3. For drilling: Create drilling operations for each specified hole. Select the appropriate drill tool based on hole diameter, and use material-specific RPM and feed rates.
4. Select tools, RPM, and feed rates from the available database based on the material and operation type.
5. Ensure all operations are in logical sequence (face milling first, then drilling).
6. Provide clear notes explaining each step.

**Output Format:**
Return a JSON array of plan steps. Each step must include:
- operation: "face_milling" or "drilling"
- depth_mm: depth in millimeters (required for face_milling, typically 0.2mm)
- diameter_mm: hole diameter (required for drilling)
- position: [x, y] coordinates (required for drilling)
- tool: tool identifier from database (e.g., "endmill_6mm", "drill_6mm")
- rpm: spindle speed in RPM (from material database)
- feed_rate_mm_per_min: feed rate in mm/min (from material database)
- notes: brief description of the operation

**Example Output:**
[
  {
    "operation": "face_milling",
    "depth_mm": 0.2,
    "tool": "endmill_6mm",
    "rpm": 12000,
    "feed_rate_mm_per_min": 800,
    "notes": "Face top surface for {{ .Material }}"
  },
  {
    "operation": "drilling",
    "diameter_mm": 6.0,
    "depth_mm": 10.0,
    "position": [0.0, 0.0],
    "tool": "drill_6mm",
    "rpm": 12000,
    "feed_rate_mm_per_min": 800,
    "notes": "Drill 6mm hole at position [0, 0]"
  }
]

Generate the plan now:`

var promptTemplate = template.Must(template.New("plan").Parse(promptText))

type promptHole struct {
	Index    int
	Diameter string
	Depth    string
	Position string
}

type promptData struct {
	Material   string
	Holes      []promptHole
	Materials  string
	Tools      string
	Operations string
}

// BuildPrompt renders the planning prompt for spec, embedding the full
// knowledge base tables
func BuildPrompt(spec model.PartSpec, k *kb.KnowledgeBase) (string, error) {
	doc := k.Document()

	data := promptData{Material: spec.Material}
	for i, hole := range spec.DrillHoles {
		data.Holes = append(data.Holes, promptHole{
			Index:    i + 1,
			Diameter: formatNumber(hole.DiameterMM),
			Depth:    formatNumber(hole.DepthMM),
			Position: formatPosition(hole.Position),
		})
	}

	var err error
	if data.Materials, err = indentJSON(doc.Materials); err != nil {
		return "", err
	}
	if data.Tools, err = indentJSON(doc.Tools); err != nil {
		return "", err
	}
	if data.Operations, err = indentJSON(doc.Operations); err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render planning prompt: %w", err)
	}
	return buf.String(), nil
}

func indentJSON(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode knowledge base for prompt: %w", err)
	}
	return string(out), nil
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}

func formatPosition(position []float64) string {
	parts := make([]string, len(position))
	for i, c := range position {
		parts[i] = formatNumber(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
