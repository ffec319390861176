// Package metrics records planner and pipeline activity.
package metrics

import "time"

// Recorder receives run and planning events
type Recorder interface {
	// ObserveRun records a finished pipeline run. phase is the phase the run
	// ended in ("done" or the phase that failed).
	ObserveRun(phase, strategy string, valid bool, duration time.Duration)

	// IncFallback counts a switch from the LLM strategy to the rule-based one
	IncFallback(reason string)

	// IncDroppedStep counts an LLM step rejected during repair
	IncDroppedStep(reason string)
}

// Nop discards everything
type Nop struct{}

func (Nop) ObserveRun(string, string, bool, time.Duration) {}
func (Nop) IncFallback(string)                             {}
func (Nop) IncDroppedStep(string)                          {}

// OrNop returns r, or Nop when r is nil
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
