package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, doc string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &v))
	return v
}

func TestValidatePartSpec(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "face mill only", doc: `{"material": "aluminum_6061"}`},
		{name: "null holes", doc: `{"material": "aluminum_6061", "drill_holes": null}`},
		{name: "one hole", doc: `{"material": "steel_1018", "drill_holes": [{"diameter_mm": 6, "depth_mm": 10, "position": [0, 0]}]}`},
		{name: "yaml input", doc: "material: steel_1018\ndrill_holes:\n  - {diameter_mm: 3, depth_mm: 5, position: [10, 10]}\n"},
		{name: "missing material", doc: `{"drill_holes": []}`, wantErr: true},
		{name: "empty material", doc: `{"material": ""}`, wantErr: true},
		{name: "hole missing depth", doc: `{"material": "a", "drill_holes": [{"diameter_mm": 6, "position": [0, 0]}]}`, wantErr: true},
		{name: "three coordinates", doc: `{"material": "a", "drill_holes": [{"diameter_mm": 6, "depth_mm": 1, "position": [0, 0, 1]}]}`, wantErr: true},
		{name: "string diameter", doc: `{"material": "a", "drill_holes": [{"diameter_mm": "6", "depth_mm": 1, "position": [0, 0]}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePartSpec(decode(t, tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKnowledgeBase(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	valid := `
materials:
  aluminum_6061: {recommended_rpm: 12000, recommended_feed_mm_per_min: 800}
tools:
  drill_6mm: {type: drill, diameter_mm: 6}
operations:
  face_milling: {default_tool: endmill_6mm}
`
	assert.NoError(t, v.ValidateKnowledgeBase(decode(t, valid)))

	missingOps := `
materials: {}
tools: {}
`
	assert.Error(t, v.ValidateKnowledgeBase(decode(t, missingOps)))

	badRPM := `
materials:
  aluminum_6061: {recommended_rpm: 0, recommended_feed_mm_per_min: 800}
tools: {}
operations: {}
`
	assert.Error(t, v.ValidateKnowledgeBase(decode(t, badRPM)))
}
