package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/llm"
	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/model"
	"go.uber.org/zap"
)

// Strategy names the planning strategy that produced a plan
type Strategy string

const (
	StrategyLLM   Strategy = "llm"
	StrategyRules Strategy = "rules"
)

// Fallback reasons, used as metric labels
const (
	ReasonCollaborator = "collaborator_error"
	ReasonTimeout      = "timeout"
	ReasonParse        = "parse_error"
	ReasonNoSteps      = "no_valid_steps"
)

var errNoValidSteps = errors.New("no valid plan steps generated from model")

// Outcome is the result of one planning call
type Outcome struct {
	Steps          []model.PlanStep
	Strategy       Strategy
	Warnings       []string
	FallbackReason string
}

// Planner produces plan steps from a part spec. It tries the configured
// generator first and falls back to the rule-based strategy.
type Planner struct {
	kb        *kb.KnowledgeBase
	generator llm.Generator
	timeout   time.Duration
	logger    *zap.Logger
	recorder  metrics.Recorder
}

// Option configures a Planner
type Option func(*Planner)

// WithGenerator enables the LLM strategy
func WithGenerator(g llm.Generator) Option {
	return func(p *Planner) { p.generator = g }
}

// WithTimeout bounds each generator call
func WithTimeout(d time.Duration) Option {
	return func(p *Planner) { p.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// New creates a planner over the knowledge base
func New(k *kb.KnowledgeBase, opts ...Option) *Planner {
	p := &Planner{kb: k}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.recorder = metrics.OrNop(p.recorder)
	if p.generator != nil {
		p.generator = llm.WithTimeout(p.generator, p.timeout)
	}
	return p
}

// UsesLLM reports whether the primary strategy is configured
func (p *Planner) UsesLLM() bool {
	return p.generator != nil
}

// Plan generates plan steps for spec. The only error it returns comes from
// the rule-based strategy (unknown material, no drill tools).
func (p *Planner) Plan(ctx context.Context, spec model.PartSpec) (Outcome, error) {
	var fallbackReason string

	if p.generator != nil {
		steps, warnings, err := p.planWithLLM(ctx, spec)
		if err == nil {
			p.logger.Info("LLM generated plan", zap.Int("steps", len(steps)))
			return Outcome{Steps: steps, Strategy: StrategyLLM, Warnings: warnings}, nil
		}

		reason := fallbackReasonFor(err)
		p.logger.Warn("LLM planning failed, falling back to rule-based planning",
			zap.String("reason", reason),
			zap.Error(err))
		p.recorder.IncFallback(reason)
		fallbackReason = err.Error()
	}

	steps, warnings, err := RuleBased(spec, p.kb)
	for _, w := range warnings {
		p.logger.Warn("rule-based planning adjusted input", zap.String("warning", w))
	}
	outcome := Outcome{
		Steps:          steps,
		Strategy:       StrategyRules,
		Warnings:       warnings,
		FallbackReason: fallbackReason,
	}
	if err != nil {
		return outcome, err
	}

	p.logger.Debug("rule-based plan generated", zap.Int("steps", len(steps)))
	return outcome, nil
}

func (p *Planner) planWithLLM(ctx context.Context, spec model.PartSpec) ([]model.PlanStep, []string, error) {
	prompt, err := BuildPrompt(spec, p.kb)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug("sending planning request", zap.String("provider", llm.NameOf(p.generator)))
	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Debug("planning response received", zap.Int("chars", len(text)))

	raw, err := ParseResponse(text)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	defaults := Defaults{RPM: kb.DefaultRPM, Feed: kb.DefaultFeed}
	if rpm, feed, err := p.kb.MaterialParams(spec.Material); err == nil {
		defaults = Defaults{RPM: rpm, Feed: feed}
	} else {
		msg := fmt.Sprintf("unknown material %q, using %d rpm / %g mm/min", spec.Material, kb.DefaultRPM, kb.DefaultFeed)
		p.logger.Warn("unknown material on LLM path", zap.String("material", spec.Material))
		warnings = append(warnings, msg)
	}

	steps := make([]model.PlanStep, 0, len(raw))
	for i, r := range raw {
		step, err := Repair(r, defaults, p.kb)
		if err != nil {
			p.logger.Warn("dropping invalid step from model output", zap.Int("step", i+1), zap.Error(err))
			p.recorder.IncDroppedStep("invalid_step")
			warnings = append(warnings, fmt.Sprintf("step %d dropped: %v", i+1, err))
			continue
		}
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		return nil, warnings, errNoValidSteps
	}
	return steps, warnings, nil
}

func fallbackReasonFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrParse):
		return ReasonParse
	case errors.Is(err, errNoValidSteps):
		return ReasonNoSteps
	default:
		return ReasonCollaborator
	}
}
