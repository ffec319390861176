package model

// PartSpec is the declarative description of a workpiece submitted for planning
type PartSpec struct {
	Material   string      `yaml:"material" json:"material"`
	DrillHoles []DrillHole `yaml:"drill_holes,omitempty" json:"drill_holes,omitempty"`
}

// DrillHole is a single hole to be drilled into the part
type DrillHole struct {
	DiameterMM float64   `yaml:"diameter_mm" json:"diameter_mm"`
	DepthMM    float64   `yaml:"depth_mm" json:"depth_mm"`
	Position   []float64 `yaml:"position" json:"position"` // [x, y] in mm
}

// FaceMillOnly reports whether the spec describes no holes at all
func (s PartSpec) FaceMillOnly() bool {
	return len(s.DrillHoles) == 0
}
