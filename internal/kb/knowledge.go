// Package kb holds the read-only machining knowledge base: materials, tools and
// operation defaults, plus the drill tool resolver built on top of it.
package kb

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Fallback cutting parameters used when a material is not in the knowledge base.
const (
	DefaultRPM          = 1000
	DefaultFeed         = 100.0
	DefaultFaceMillTool = "endmill_6mm"
)

// UnknownTool is the tool name a plan step carries when the drill is left to
// be resolved at generation time
const UnknownTool = "unknown"

var (
	ErrUnknownMaterial       = errors.New("unknown material")
	ErrNoDrillToolsAvailable = errors.New("no drill tools available in knowledge base")
)

// Material holds recommended cutting parameters for a workpiece material
type Material struct {
	RecommendedRPM          int     `yaml:"recommended_rpm" json:"recommended_rpm"`
	RecommendedFeedMMPerMin float64 `yaml:"recommended_feed_mm_per_min" json:"recommended_feed_mm_per_min"`
	Description             string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// Tool is a cutting tool record. DiameterMM is nil when the document does not
// state a numeric diameter.
type Tool struct {
	Key         string   `yaml:"-" json:"-"`
	Type        string   `yaml:"type" json:"type"`
	DiameterMM  *float64 `yaml:"diameter_mm,omitempty" json:"diameter_mm,omitempty"`
	Flutes      int      `yaml:"flutes,omitempty" json:"flutes,omitempty"`
	Material    string   `yaml:"material,omitempty" json:"material,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// IsDrill reports whether the tool can be picked by the drill resolver
func (t Tool) IsDrill() bool {
	return t.Type == "drill" && t.DiameterMM != nil
}

// Operation holds defaults for one operation kind
type Operation struct {
	DefaultTool string `yaml:"default_tool,omitempty" json:"default_tool,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Document is the on-disk shape of the knowledge base
type Document struct {
	Materials  map[string]Material  `yaml:"materials" json:"materials"`
	Tools      map[string]Tool      `yaml:"tools" json:"tools"`
	Operations map[string]Operation `yaml:"operations" json:"operations"`
}

// KnowledgeBase is an immutable view over a Document. It is safe to share
// between concurrent pipeline runs.
type KnowledgeBase struct {
	materials  map[string]Material
	tools      map[string]Tool
	operations map[string]Operation
	toolKeys   []string
}

// New builds a knowledge base from the three tables. The maps are copied.
func New(materials map[string]Material, tools map[string]Tool, operations map[string]Operation) *KnowledgeBase {
	kb := &KnowledgeBase{
		materials:  make(map[string]Material, len(materials)),
		tools:      make(map[string]Tool, len(tools)),
		operations: make(map[string]Operation, len(operations)),
		toolKeys:   make([]string, 0, len(tools)),
	}
	for k, v := range materials {
		kb.materials[k] = v
	}
	for k, v := range tools {
		v.Key = k
		if v.DiameterMM != nil {
			d := *v.DiameterMM
			v.DiameterMM = &d
		}
		kb.tools[k] = v
		kb.toolKeys = append(kb.toolKeys, k)
	}
	for k, v := range operations {
		kb.operations[k] = v
	}
	sort.Strings(kb.toolKeys)
	return kb
}

// FromDocument builds a knowledge base from a decoded document
func FromDocument(doc Document) *KnowledgeBase {
	return New(doc.Materials, doc.Tools, doc.Operations)
}

// Parse decodes a JSON or YAML knowledge base document
func Parse(data []byte) (*KnowledgeBase, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if doc.Materials == nil || doc.Tools == nil || doc.Operations == nil {
		return nil, fmt.Errorf("knowledge base must define materials, tools and operations")
	}
	return FromDocument(doc), nil
}

// Material looks up a material by key
func (k *KnowledgeBase) Material(key string) (Material, bool) {
	m, ok := k.materials[key]
	return m, ok
}

// Tool looks up a tool by key
func (k *KnowledgeBase) Tool(key string) (Tool, bool) {
	t, ok := k.tools[key]
	return t, ok
}

// Operation looks up operation defaults by key
func (k *KnowledgeBase) Operation(key string) (Operation, bool) {
	op, ok := k.operations[key]
	return op, ok
}

// ToolKeys returns all tool keys in sorted order
func (k *KnowledgeBase) ToolKeys() []string {
	return append([]string(nil), k.toolKeys...)
}

// MaterialKeys returns all material keys in sorted order
func (k *KnowledgeBase) MaterialKeys() []string {
	return sortedKeys(k.materials)
}

// OperationKeys returns all operation keys in sorted order
func (k *KnowledgeBase) OperationKeys() []string {
	return sortedKeys(k.operations)
}

// MaterialParams returns the recommended spindle speed and feed for a material.
// Callers decide whether ErrUnknownMaterial aborts or degrades to defaults.
func (k *KnowledgeBase) MaterialParams(key string) (int, float64, error) {
	m, ok := k.materials[key]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownMaterial, key)
	}
	rpm := m.RecommendedRPM
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	feed := m.RecommendedFeedMMPerMin
	if feed <= 0 {
		feed = DefaultFeed
	}
	return rpm, feed, nil
}

// FaceMillTool returns the default face milling tool key
func (k *KnowledgeBase) FaceMillTool() string {
	if op, ok := k.operations["face_milling"]; ok && op.DefaultTool != "" {
		return op.DefaultTool
	}
	return DefaultFaceMillTool
}

// Document returns a copy of the tables, used to embed the knowledge base in
// prompts and to print it.
func (k *KnowledgeBase) Document() Document {
	doc := Document{
		Materials:  make(map[string]Material, len(k.materials)),
		Tools:      make(map[string]Tool, len(k.tools)),
		Operations: make(map[string]Operation, len(k.operations)),
	}
	for key, v := range k.materials {
		doc.Materials[key] = v
	}
	for key, v := range k.tools {
		doc.Tools[key] = v
	}
	for key, v := range k.operations {
		doc.Operations[key] = v
	}
	return doc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
