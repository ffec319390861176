package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	fallbacks    *prometheus.CounterVec
	droppedSteps *prometheus.CounterVec
}

// NewPrometheusRecorder registers the processagent metrics with reg
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processagent_runs_total",
				Help: "Total number of planning runs by final phase, strategy and validity",
			},
			[]string{"phase", "strategy", "valid"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "processagent_run_duration_seconds",
				Help:    "Duration of planning runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processagent_planner_fallbacks_total",
				Help: "Total number of switches to the rule-based planner",
			},
			[]string{"reason"},
		),
		droppedSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processagent_planner_dropped_steps_total",
				Help: "Total number of LLM plan steps rejected during repair",
			},
			[]string{"reason"},
		),
	}
}

// ObserveRun records a finished pipeline run.
func (p *PrometheusRecorder) ObserveRun(phase, strategy string, valid bool, duration time.Duration) {
	if strategy == "" {
		strategy = "none"
	}
	p.runsTotal.WithLabelValues(phase, strategy, strconv.FormatBool(valid)).Inc()
	p.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// IncFallback increments the fallback counter.
func (p *PrometheusRecorder) IncFallback(reason string) {
	p.fallbacks.WithLabelValues(reason).Inc()
}

// IncDroppedStep increments the dropped step counter.
func (p *PrometheusRecorder) IncDroppedStep(reason string) {
	p.droppedSteps.WithLabelValues(reason).Inc()
}
