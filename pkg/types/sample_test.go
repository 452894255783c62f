package types

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunContextStatusTransitionsOnce(t *testing.T) {
	tests := []struct {
		name   string
		first  RunStatus
		second RunStatus
	}{
		{"completed then aborted", RunStatusCompleted, RunStatusAborted},
		{"aborted then completed", RunStatusAborted, RunStatusCompleted},
		{"aborted twice", RunStatusAborted, RunStatusAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRunContext(ChaosScenario{Name: "n"}, "run1")
			assert.Equal(t, RunStatusRunning, rc.Status())
			assert.True(t, rc.TransitionTo(tt.first))
			assert.False(t, rc.TransitionTo(tt.second))
			assert.Equal(t, tt.first, rc.Status())
		})
	}
}

func TestRunContextRejectsTransitionToRunning(t *testing.T) {
	rc := NewRunContext(ChaosScenario{}, "run1")
	assert.False(t, rc.TransitionTo(RunStatusRunning))
	assert.Equal(t, RunStatusRunning, rc.Status())
}

func TestPhaseOnlyMovesForward(t *testing.T) {
	rc := NewRunContext(ChaosScenario{}, "run1")
	assert.Equal(t, PhaseBaseline, rc.CurrentPhase())

	rc.AdvancePhase(PhaseChaos)
	assert.Equal(t, PhaseChaos, rc.CurrentPhase())

	// backward transition is a no-op
	rc.AdvancePhase(PhaseBaseline)
	assert.Equal(t, PhaseChaos, rc.CurrentPhase())

	rc.AdvancePhase(PhaseRecovery)
	assert.Equal(t, PhaseRecovery, rc.CurrentPhase())
	rc.AdvancePhase(PhaseChaos)
	assert.Equal(t, PhaseRecovery, rc.CurrentPhase())
}

func TestSampleBufferSnapshotIsImmutable(t *testing.T) {
	buf := NewSampleBuffer()
	buf.Append(ProbeSample{Timestamp: time.Now(), Phase: PhaseBaseline, Success: true})

	snap := buf.Snapshot()
	buf.Append(ProbeSample{Timestamp: time.Now(), Phase: PhaseChaos, Success: false})

	assert.Equal(t, 1, len(snap))
	assert.Equal(t, 2, buf.Len())
}

func TestSampleBufferConcurrentReaders(t *testing.T) {
	buf := NewSampleBuffer()
	const total = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			buf.Append(ProbeSample{Timestamp: time.Now(), Phase: PhaseChaos, Success: i%2 == 0})
		}
	}()

	// readers must always observe a consistent prefix: monotonic timestamps,
	// length never decreasing
	prevLen := 0
	for i := 0; i < 200; i++ {
		snap := buf.Snapshot()
		if len(snap) < prevLen {
			t.Fatalf("snapshot shrank from %d to %d", prevLen, len(snap))
		}
		prevLen = len(snap)
		for j := 1; j < len(snap); j++ {
			if snap[j].Timestamp.Before(snap[j-1].Timestamp) {
				t.Fatalf("timestamps regressed at index %d", j)
			}
		}
	}
	wg.Wait()
	assert.Equal(t, total, buf.Len())
}

func TestFaultTargetParsing(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantCtr string
		wantPID int
		hasCtr  bool
		hasPID  bool
	}{
		{"container handle", "container:payments-db", "payments-db", 0, true, false},
		{"pid handle", "pid:4242", "", 4242, false, true},
		{"no handle", "", "", 0, false, false},
		{"malformed pid", "pid:abc", "", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ChaosScenario{FaultTarget: tt.target}
			ctr, okCtr := s.FaultTargetContainer()
			pid, okPID := s.FaultTargetPID()
			assert.Equal(t, tt.hasCtr, okCtr)
			assert.Equal(t, tt.wantCtr, ctr)
			assert.Equal(t, tt.hasPID, okPID)
			assert.Equal(t, tt.wantPID, pid)
		})
	}
}
