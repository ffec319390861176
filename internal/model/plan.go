package model

// OperationType is the closed set of machining operations a plan may contain
type OperationType string

const (
	FaceMilling OperationType = "face_milling"
	Drilling    OperationType = "drilling"
)

// Operations lists every supported operation in emission order
var Operations = []OperationType{FaceMilling, Drilling}

// Valid reports whether op is a member of the closed operation set
func (op OperationType) Valid() bool {
	switch op {
	case FaceMilling, Drilling:
		return true
	default:
		return false
	}
}

// PlanStep is one machining operation with fully or partially resolved parameters.
// Nil optional fields mean "resolve from material defaults at generation time".
type PlanStep struct {
	Operation        OperationType `yaml:"operation" json:"operation"`
	DepthMM          *float64      `yaml:"depth_mm,omitempty" json:"depth_mm,omitempty"`
	DiameterMM       *float64      `yaml:"diameter_mm,omitempty" json:"diameter_mm,omitempty"`
	Position         []float64     `yaml:"position,omitempty" json:"position,omitempty"`
	Tool             *string       `yaml:"tool,omitempty" json:"tool,omitempty"`
	RPM              *int          `yaml:"rpm,omitempty" json:"rpm,omitempty"`
	FeedRateMMPerMin *float64      `yaml:"feed_rate_mm_per_min,omitempty" json:"feed_rate_mm_per_min,omitempty"`
	Notes            string        `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// PlanResult is the terminal artifact of one pipeline run
type PlanResult struct {
	RunID    string     `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Strategy string     `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Plan     []PlanStep `yaml:"plan" json:"plan"`
	GCode    *string    `yaml:"gcode" json:"gcode"`
	Valid    bool       `yaml:"valid" json:"valid"`
	Errors   []string   `yaml:"errors" json:"errors"`

	// FallbackReason is why the LLM strategy was abandoned, empty when it
	// was not attempted or succeeded
	FallbackReason string `yaml:"fallback_reason,omitempty" json:"fallback_reason,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
