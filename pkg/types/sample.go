package types

import (
	"sync/atomic"
	"time"
)

// Phase tags each probe sample with the run window it was taken in.
type Phase string

const (
	PhaseBaseline Phase = "baseline"
	PhaseChaos    Phase = "chaos"
	PhaseRecovery Phase = "recovery"
)

// phaseRank orders phases; transitions only ever move forward.
func phaseRank(p Phase) int {
	switch p {
	case PhaseBaseline:
		return 0
	case PhaseChaos:
		return 1
	case PhaseRecovery:
		return 2
	}
	return -1
}

// RunStatus is the lifecycle state of one scenario execution.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusCompleted RunStatus = "completed"
)

// ProbeSample is one health observation. Produced only by the sampler,
// append-only, never mutated after append. LatencyMs is nil on failure.
type ProbeSample struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     Phase     `json:"phase"`
	LatencyMs *float64  `json:"latency_ms"`
	Success   bool      `json:"success"`
}

// SampleBuffer is the single-writer, lock-free sample sequence. The writer
// publishes a fresh slice header after every append, so readers always
// snapshot a consistent prefix without taking a lock.
type SampleBuffer struct {
	samples atomic.Pointer[[]ProbeSample]
}

func NewSampleBuffer() *SampleBuffer {
	b := &SampleBuffer{}
	empty := make([]ProbeSample, 0, 64)
	b.samples.Store(&empty)
	return b
}

// Append publishes one sample. Must only ever be called from the sampler
// goroutine; timestamps are non-decreasing because there is a single writer.
func (b *SampleBuffer) Append(s ProbeSample) {
	cur := *b.samples.Load()
	next := make([]ProbeSample, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, s)
	b.samples.Store(&next)
}

// Snapshot returns the published sample prefix. The returned slice is
// immutable: the writer never appends in place.
func (b *SampleBuffer) Snapshot() []ProbeSample {
	return *b.samples.Load()
}

func (b *SampleBuffer) Len() int {
	return len(*b.samples.Load())
}

// Perturbation is the probe-side fallback channel for degraded-mode network
// faults: the sampler delays its own request send and/or drops probes with
// the configured probability instead of relying on kernel-level shaping.
type Perturbation struct {
	AddedLatency    time.Duration
	DropProbability float64
}

// PhaseBoundaries are the timestamps separating the three run windows,
// written only by the controller, strictly ordered.
type PhaseBoundaries struct {
	BaselineEnd time.Time `json:"baseline_end"`
	ChaosEnd    time.Time `json:"chaos_end"`
	RecoveryEnd time.Time `json:"recovery_end"`
}

// RunContext owns the state of one scenario execution. It is created by the
// run controller, shared with the sampler (sample writes) and the injector
// (perturbation writes in degraded mode), and discarded once the validation
// result has been produced. Nothing here is shared across runs.
type RunContext struct {
	Scenario  ChaosScenario
	RunID     string
	StartedAt time.Time
	Samples   *SampleBuffer

	Boundaries PhaseBoundaries

	phase        atomic.Int32
	status       atomic.Value
	perturbation atomic.Pointer[Perturbation]
}

func NewRunContext(scenario ChaosScenario, runID string) *RunContext {
	rc := &RunContext{
		Scenario:  scenario,
		RunID:     runID,
		StartedAt: time.Now(),
		Samples:   NewSampleBuffer(),
	}
	rc.phase.Store(int32(phaseRank(PhaseBaseline)))
	rc.status.Store(RunStatusRunning)
	return rc
}

// CurrentPhase returns the phase the sampler should tag new samples with.
func (rc *RunContext) CurrentPhase() Phase {
	switch rc.phase.Load() {
	case 1:
		return PhaseChaos
	case 2:
		return PhaseRecovery
	}
	return PhaseBaseline
}

// AdvancePhase moves the run to the given phase. Backward transitions are
// ignored so the phase cell only ever moves forward.
func (rc *RunContext) AdvancePhase(p Phase) {
	next := int32(phaseRank(p))
	for {
		cur := rc.phase.Load()
		if next <= cur {
			return
		}
		if rc.phase.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (rc *RunContext) Status() RunStatus {
	return rc.status.Load().(RunStatus)
}

// TransitionTo moves the run to a terminal status. A run transitions
// running -> {aborted, completed} exactly once; later calls are no-ops and
// return false.
func (rc *RunContext) TransitionTo(status RunStatus) bool {
	if status != RunStatusAborted && status != RunStatusCompleted {
		return false
	}
	return rc.status.CompareAndSwap(RunStatusRunning, status)
}

// SetPerturbation installs (or clears, with nil) the degraded-mode probe
// perturbation. Written only by network faults running in fallback mode.
func (rc *RunContext) SetPerturbation(p *Perturbation) {
	rc.perturbation.Store(p)
}

func (rc *RunContext) Perturbation() *Perturbation {
	return rc.perturbation.Load()
}
