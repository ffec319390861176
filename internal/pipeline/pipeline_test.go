package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/llm"
	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/model"
	"github.com/sourceplane/processagent/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func respond(text string) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func TestScenarioFaceMillOnly(t *testing.T) {
	result, err := New(kb.Default()).Run(context.Background(), model.PartSpec{Material: "aluminum_6061"})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Plan, 1)
	assert.Equal(t, model.FaceMilling, result.Plan[0].Operation)
	assert.Equal(t, 0.2, *result.Plan[0].DepthMM)

	require.NotNil(t, result.GCode)
	assert.Equal(t, 1, strings.Count(*result.GCode, "M03 "))
	assert.Equal(t, 1, strings.Count(*result.GCode, "M05"))
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "rules", result.Strategy)
}

func TestScenarioSingleHole(t *testing.T) {
	spec := model.PartSpec{
		Material:   "aluminum_6061",
		DrillHoles: []model.DrillHole{{DiameterMM: 6, DepthMM: 10, Position: []float64{0, 0}}},
	}

	result, err := New(kb.Default()).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Len(t, result.Plan, 2)
	require.NotNil(t, result.GCode)
	assert.Equal(t, 1, strings.Count(*result.GCode, "; -- Drilling --"))
	assert.Contains(t, *result.GCode, "; TOOL drill_6mm DIA 6mm")
}

func TestScenarioUnknownMaterial(t *testing.T) {
	spec := model.PartSpec{
		Material:   "unknown_material",
		DrillHoles: []model.DrillHole{{DiameterMM: 6, DepthMM: 10, Position: []float64{0, 0}}},
	}

	result, err := New(kb.Default()).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Nil(t, result.GCode)
	assert.Empty(t, result.Plan)
	assert.NotNil(t, result.Plan)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "planning failed: unknown material: unknown_material", result.Errors[0])
}

func TestScenarioNegativeDiameterFromModel(t *testing.T) {
	g := respond(`[
  {"operation": "face_milling"},
  {"operation": "drilling", "diameter_mm": -1, "depth_mm": 5, "position": [0, 0]}
]`)
	spec := model.PartSpec{
		Material:   "aluminum_6061",
		DrillHoles: []model.DrillHole{{DiameterMM: 6, DepthMM: 5, Position: []float64{0, 0}}},
	}

	result, err := New(kb.Default(), WithGenerator(g)).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Nil(t, result.GCode)
	assert.Len(t, result.Plan, 2, "plan is kept for inspection")
	assert.Equal(t, []string{"step 1: drilling requires diameter_mm > 0"}, result.Errors)
	assert.Equal(t, "llm", result.Strategy)
}

func TestRuleBasedProducesOneStepPerHole(t *testing.T) {
	holes := []model.DrillHole{
		{DiameterMM: 3, DepthMM: 5, Position: []float64{10, 10}},
		{DiameterMM: 8, DepthMM: 12, Position: []float64{40, 10}},
		{DiameterMM: 5, DepthMM: 6, Position: []float64{25, 30}},
		{DiameterMM: 10, DepthMM: 15, Position: []float64{5, 45}},
	}

	for n := 0; n <= len(holes); n++ {
		result, err := New(kb.Default()).Run(context.Background(), model.PartSpec{
			Material:   "brass_360",
			DrillHoles: holes[:n],
		})
		require.NoError(t, err)
		require.True(t, result.Valid, result.Errors)
		require.Len(t, result.Plan, n+1)

		assert.Equal(t, model.FaceMilling, result.Plan[0].Operation)
		for i := 0; i < n; i++ {
			assert.Equal(t, model.Drilling, result.Plan[i+1].Operation)
			assert.Equal(t, holes[i].Position, result.Plan[i+1].Position)
		}
	}
}

func TestGenerationFailure(t *testing.T) {
	// a table without drills: the model names no usable tool, so the
	// generator has nothing to resolve against
	noDrills := kb.New(
		map[string]kb.Material{"aluminum_6061": {RecommendedRPM: 12000, RecommendedFeedMMPerMin: 800}},
		map[string]kb.Tool{},
		map[string]kb.Operation{},
	)
	g := respond(`[{"operation": "drilling", "diameter_mm": 6, "depth_mm": 5, "position": [0, 0], "tool": "unknown"}]`)

	result, err := New(noDrills, WithGenerator(g)).Run(context.Background(), model.PartSpec{Material: "aluminum_6061"})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Nil(t, result.GCode)
	assert.Len(t, result.Plan, 1)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "generation failed: "))
	assert.Contains(t, result.Errors[0], "no drill tools available")
}

func TestMalformedSpecIsRejected(t *testing.T) {
	_, err := New(kb.Default()).Run(context.Background(), model.PartSpec{
		Material:   "aluminum_6061",
		DrillHoles: []model.DrillHole{{DiameterMM: 6, DepthMM: 10, Position: []float64{0}}},
	})
	assert.ErrorIs(t, err, normalize.ErrInvalidPartSpec)
}

func TestFallbackOnTimeout(t *testing.T) {
	slow := llm.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := New(kb.Default(), WithGenerator(slow), WithTimeout(10*time.Millisecond))

	result, err := p.Run(context.Background(), model.PartSpec{Material: "steel_1018"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "rules", result.Strategy)
	assert.Contains(t, result.FallbackReason, context.DeadlineExceeded.Error())
}

func TestOutOfRangeRPMFromModelFallsBack(t *testing.T) {
	g := respond(`[{"operation": "face_milling", "depth_mm": 0.5, "rpm": 1e19}]`)

	result, err := New(kb.Default(), WithGenerator(g)).Run(context.Background(), model.PartSpec{Material: "aluminum_6061"})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "rules", result.Strategy)
	assert.NotEmpty(t, result.FallbackReason)
	require.Len(t, result.Plan, 1)
	assert.Equal(t, 12000, *result.Plan[0].RPM)
}

func TestModelDrillMissingFromTableIsResolved(t *testing.T) {
	g := respond(`[
  {"operation": "face_milling"},
  {"operation": "drilling", "diameter_mm": 8, "depth_mm": 5, "position": [10, 10], "tool": "drill_42mm"}
]`)

	result, err := New(kb.Default(), WithGenerator(g)).Run(context.Background(), model.PartSpec{Material: "aluminum_6061"})
	require.NoError(t, err)

	require.True(t, result.Valid, result.Errors)
	assert.Equal(t, "llm", result.Strategy)
	assert.Empty(t, result.FallbackReason)
	assert.Equal(t, "drill_8mm", *result.Plan[1].Tool)
	assert.Contains(t, *result.GCode, "; TOOL drill_8mm DIA 8mm")
	assert.NotContains(t, *result.GCode, "DIA ?mm")
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	p := New(kb.Default(), WithRecorder(rec), WithGenerator(respond("nope")))

	_, err := p.Run(context.Background(), model.PartSpec{Material: "aluminum_6061"})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), model.PartSpec{Material: "unknown_material"})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg,
		"processagent_runs_total",
		"processagent_planner_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "done + plan run series, one fallback series")

	expected := `
# HELP processagent_planner_fallbacks_total Total number of switches to the rule-based planner
# TYPE processagent_planner_fallbacks_total counter
processagent_planner_fallbacks_total{reason="parse_error"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "processagent_planner_fallbacks_total"))
}

func TestConcurrentRunsShareKnowledgeBase(t *testing.T) {
	p := New(kb.Default())
	spec := model.PartSpec{
		Material:   "steel_1018",
		DrillHoles: []model.DrillHole{{DiameterMM: 7, DepthMM: 10, Position: []float64{5, 5}}},
	}

	want, err := p.Run(context.Background(), spec)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]model.PlanResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.Run(context.Background(), spec)
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{want.RunID: true}
	for _, r := range results {
		assert.Equal(t, *want.GCode, *r.GCode)
		assert.False(t, ids[r.RunID], "run ids are unique")
		ids[r.RunID] = true
	}
}
