// Package pipeline sequences planning, validation and program generation
// into a single run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourceplane/processagent/internal/gcode"
	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/llm"
	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/model"
	"github.com/sourceplane/processagent/internal/normalize"
	"github.com/sourceplane/processagent/internal/planner"
	"github.com/sourceplane/processagent/internal/validate"
	"go.uber.org/zap"
)

// Phase is a stage of a run
type Phase string

const (
	PhasePlan         Phase = "plan"
	PhaseValidatePre  Phase = "validate_pre"
	PhaseGenerate     Phase = "generate"
	PhaseValidatePost Phase = "validate_post"
	PhaseDone         Phase = "done"
)

// Pipeline runs part specs through plan, validate, generate, validate.
// It holds no per-run state, so one instance serves concurrent runs.
type Pipeline struct {
	kb        *kb.KnowledgeBase
	planner   *planner.Planner
	generator *gcode.Generator
	logger    *zap.Logger
	recorder  metrics.Recorder
}

type settings struct {
	generator llm.Generator
	timeout   time.Duration
	logger    *zap.Logger
	recorder  metrics.Recorder
}

// Option configures a Pipeline
type Option func(*settings)

// WithGenerator enables the LLM planning strategy
func WithGenerator(g llm.Generator) Option {
	return func(s *settings) { s.generator = g }
}

// WithTimeout bounds each LLM call
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

// New creates a pipeline over the knowledge base
func New(k *kb.KnowledgeBase, opts ...Option) *Pipeline {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.recorder = metrics.OrNop(s.recorder)

	plannerOpts := []planner.Option{
		planner.WithLogger(s.logger.Named("planner")),
		planner.WithRecorder(s.recorder),
		planner.WithTimeout(s.timeout),
	}
	if s.generator != nil {
		plannerOpts = append(plannerOpts, planner.WithGenerator(s.generator))
	}

	return &Pipeline{
		kb:        k,
		planner:   planner.New(k, plannerOpts...),
		generator: gcode.New(k, s.logger.Named("gcode")),
		logger:    s.logger,
		recorder:  s.recorder,
	}
}

// KnowledgeBase returns the knowledge base the pipeline was built with
func (p *Pipeline) KnowledgeBase() *kb.KnowledgeBase {
	return p.kb
}

// Planner returns the pipeline's planner
func (p *Pipeline) Planner() *planner.Planner {
	return p.planner
}

// Run processes spec to a PlanResult. The error is non-nil only when spec is
// malformed (normalize.ErrInvalidPartSpec); every other failure is reported
// through the result's Valid and Errors fields.
func (p *Pipeline) Run(ctx context.Context, spec model.PartSpec) (model.PlanResult, error) {
	normalized, err := normalize.PartSpec(spec)
	if err != nil {
		return model.PlanResult{}, err
	}

	r := &run{
		id:     uuid.NewString(),
		start:  time.Now(),
		result: model.PlanResult{Plan: []model.PlanStep{}, Errors: []string{}},
	}
	r.result.RunID = r.id
	logger := p.logger.With(zap.String("run_id", r.id), zap.String("material", normalized.Material))

	// PLAN
	logger.Info("planning", zap.Int("holes", len(normalized.DrillHoles)))
	outcome, err := p.planner.Plan(ctx, normalized)
	r.result.Strategy = string(outcome.Strategy)
	r.result.FallbackReason = outcome.FallbackReason
	if outcome.FallbackReason != "" {
		logger.Warn("plan produced by fallback strategy", zap.String("fallback_reason", outcome.FallbackReason))
	}
	if err != nil {
		logger.Error("planning failed", zap.Error(err))
		return p.fail(r, PhasePlan, fmt.Sprintf("planning failed: %v", err)), nil
	}
	r.result.Plan = outcome.Steps

	// VALIDATE_PRE
	if report := validate.Plan(r.result.Plan); !report.Valid {
		logger.Error("plan validation failed", zap.Strings("errors", report.Errors()))
		return p.fail(r, PhaseValidatePre, report.Errors()...), nil
	}

	// GENERATE
	program, err := p.generator.Generate(r.result.Plan, normalized.Material)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return p.fail(r, PhaseGenerate, fmt.Sprintf("generation failed: %v", err)), nil
	}
	r.result.GCode = &program

	// VALIDATE_POST
	if report := validate.Program(r.result.Plan, program); !report.Valid {
		logger.Error("program validation failed", zap.Strings("errors", report.Errors()))
		return p.fail(r, PhaseValidatePost, report.Errors()...), nil
	}

	r.result.Valid = true
	p.recorder.ObserveRun(string(PhaseDone), r.result.Strategy, true, time.Since(r.start))
	logger.Info("run complete",
		zap.String("strategy", r.result.Strategy),
		zap.Int("steps", len(r.result.Plan)))
	return r.result, nil
}

// run is the transient state of one Run call
type run struct {
	id     string
	start  time.Time
	result model.PlanResult
}

func (p *Pipeline) fail(r *run, phase Phase, errs ...string) model.PlanResult {
	r.result.Valid = false
	r.result.Errors = append([]string{}, errs...)
	p.recorder.ObserveRun(string(phase), r.result.Strategy, false, time.Since(r.start))
	return r.result
}
