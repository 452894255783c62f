package sampler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/probe"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProber returns a fixed outcome and counts calls.
type scriptedProber struct {
	outcome probe.Outcome
	calls   atomic.Int32
}

func (p *scriptedProber) URL() string { return "http://localhost:8080/health" }

func (p *scriptedProber) Probe(ctx context.Context) probe.Outcome {
	p.calls.Add(1)
	return p.outcome
}

func successOutcome(latencyMs float64) probe.Outcome {
	return probe.Outcome{Success: true, LatencyMs: &latencyMs, StatusCode: 200}
}

func newRC() *types.RunContext {
	sc := types.ChaosScenario{
		Name:            "sampling-test",
		FailureType:     types.FailureTypeCPU,
		Intensity:       types.IntensityLight,
		DurationSeconds: 30,
		Target:          "http://localhost:8080/health",
	}
	return types.NewRunContext(sc, "abc123")
}

func TestRunAppendsSamplesTaggedWithCurrentPhase(t *testing.T) {
	rc := newRC()
	prober := &scriptedProber{outcome: successOutcome(12.5)}
	s := New(prober, rc, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return rc.Samples.Len() >= 3 }, 2*time.Second, time.Millisecond)
	rc.AdvancePhase(types.PhaseChaos)
	require.Eventually(t, func() bool {
		samples := rc.Samples.Snapshot()
		return samples[len(samples)-1].Phase == types.PhaseChaos
	}, 2*time.Second, time.Millisecond)

	cancel()
	<-done

	samples := rc.Samples.Snapshot()
	assert.Equal(t, types.PhaseBaseline, samples[0].Phase)
	for _, sm := range samples {
		assert.True(t, sm.Success)
		require.NotNil(t, sm.LatencyMs)
		assert.Equal(t, 12.5, *sm.LatencyMs)
	}
	// phases only ever move forward
	for i := 1; i < len(samples); i++ {
		assert.False(t, samples[i].Timestamp.Before(samples[i-1].Timestamp))
	}
}

func TestFailedProbesCarryNoLatency(t *testing.T) {
	rc := newRC()
	prober := &scriptedProber{outcome: probe.Outcome{Success: false, Reason: "connection refused"}}
	s := New(prober, rc, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return rc.Samples.Len() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done

	for _, sm := range rc.Samples.Snapshot() {
		assert.False(t, sm.Success)
		assert.Nil(t, sm.LatencyMs)
	}
}

func TestPerturbationAddsLatency(t *testing.T) {
	rc := newRC()
	rc.SetPerturbation(&types.Perturbation{AddedLatency: 20 * time.Millisecond})
	prober := &scriptedProber{outcome: successOutcome(10)}
	s := New(prober, rc, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return rc.Samples.Len() >= 1 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done

	sm := rc.Samples.Snapshot()[0]
	require.True(t, sm.Success)
	require.NotNil(t, sm.LatencyMs)
	assert.Equal(t, 30.0, *sm.LatencyMs)
}

func TestPerturbationDropsProbes(t *testing.T) {
	rc := newRC()
	// certainty: every probe is dropped
	rc.SetPerturbation(&types.Perturbation{DropProbability: 1})
	prober := &scriptedProber{outcome: successOutcome(10)}
	s := New(prober, rc, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return rc.Samples.Len() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), prober.calls.Load(), "dropped probes never reach the target")
	for _, sm := range rc.Samples.Snapshot() {
		assert.False(t, sm.Success)
		assert.Nil(t, sm.LatencyMs)
	}
}
