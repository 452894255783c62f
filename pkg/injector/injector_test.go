package injector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFault is a scripted fault that records lifecycle calls.
type fakeFault struct {
	prepareErr error
	injectErr  error
	cleanupErr error
	injectFor  time.Duration
	degraded   bool

	prepared atomic.Int32
	injected atomic.Int32
	cleaned  atomic.Int32
}

func (f *fakeFault) Name() string       { return "fake" }
func (f *fakeFault) DegradedMode() bool { return f.degraded }

func (f *fakeFault) Prepare(ctx context.Context) error {
	f.prepared.Add(1)
	return f.prepareErr
}

func (f *fakeFault) Inject(ctx context.Context) error {
	f.injected.Add(1)
	if f.injectFor > 0 {
		timer := time.NewTimer(f.injectFor)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	return f.injectErr
}

func (f *fakeFault) Cleanup() error {
	f.cleaned.Add(1)
	return f.cleanupErr
}

func TestRunHappyPath(t *testing.T) {
	fault := &fakeFault{}
	inj := NewInjector(fault, 10*time.Millisecond, 50*time.Millisecond, false)

	require.NoError(t, inj.Run(context.Background()))
	assert.Equal(t, StateDone, inj.State())
	assert.Equal(t, int32(1), fault.prepared.Load())
	assert.Equal(t, int32(1), fault.injected.Load())
	assert.Equal(t, int32(1), fault.cleaned.Load())
	assert.True(t, inj.CleanupRan())
}

func TestRunPrepareFailureStillCleansUp(t *testing.T) {
	fault := &fakeFault{prepareErr: cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Reason: "no mechanism available"}}
	inj := NewInjector(fault, 10*time.Millisecond, 50*time.Millisecond, false)

	err := inj.Run(context.Background())
	require.Error(t, err)
	_, code := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeInjection, code)
	assert.Equal(t, StateFailed, inj.State())
	assert.Equal(t, int32(0), fault.injected.Load(), "no fault may be applied after a prepare failure")
	assert.Equal(t, int32(1), fault.cleaned.Load())
}

func TestRunHonorsHardCeiling(t *testing.T) {
	// fault never self-terminates within duration + grace
	fault := &fakeFault{injectFor: time.Minute}
	inj := NewInjector(fault, 10*time.Millisecond, 10*time.Millisecond, false)

	start := time.Now()
	err := inj.Run(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, code := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeTimeout, code)
	assert.Equal(t, StateFailed, inj.State())
	assert.Equal(t, int32(1), fault.cleaned.Load())
}

func TestRunAbortOnContextCancel(t *testing.T) {
	fault := &fakeFault{injectFor: time.Minute}
	inj := NewInjector(fault, time.Minute, time.Minute, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inj.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	require.Error(t, err)
	_, code := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeAborted, code)
	assert.Equal(t, int32(1), fault.cleaned.Load())
}

func TestCleanupRunsExactlyOnce(t *testing.T) {
	fault := &fakeFault{}
	inj := NewInjector(fault, 10*time.Millisecond, 50*time.Millisecond, false)

	require.NoError(t, inj.Run(context.Background()))
	// controller defers and signal handlers may call again
	require.NoError(t, inj.CleanupOnce())
	require.NoError(t, inj.CleanupOnce())
	assert.Equal(t, int32(1), fault.cleaned.Load())
}

func TestDryRunHasZeroSideEffects(t *testing.T) {
	fault := &fakeFault{}
	inj := NewInjector(fault, 10*time.Millisecond, 50*time.Millisecond, true)

	require.NoError(t, inj.Run(context.Background()))
	assert.Equal(t, StateDone, inj.State())
	assert.Equal(t, int32(1), fault.prepared.Load(), "dry-run still resolves parameters")
	assert.Equal(t, int32(0), fault.injected.Load())
	assert.Equal(t, int32(0), fault.cleaned.Load())
	assert.False(t, inj.CleanupRan())
}

func TestNewDispatchesEveryFailureType(t *testing.T) {
	settings := environment.Settings{GracePeriod: time.Second, NetworkInterface: "eth0"}
	for _, ft := range types.FailureTypes {
		t.Run(string(ft), func(t *testing.T) {
			sc := types.ChaosScenario{
				Name:            "sc-" + string(ft),
				FailureType:     ft,
				Intensity:       types.IntensityLight,
				DurationSeconds: 30,
				Target:          "http://localhost:8080/health",
			}
			rc := types.NewRunContext(sc, "abc123")
			inj, err := New(sc, settings, rc, false)
			require.NoError(t, err)
			require.NotNil(t, inj)
			assert.Equal(t, StateIdle, inj.State())
		})
	}
}

func TestNewRejectsUnknownFailureType(t *testing.T) {
	sc := types.ChaosScenario{Name: "bad", FailureType: "meteor_strike"}
	_, err := New(sc, environment.Settings{}, types.NewRunContext(sc, "abc123"), false)
	require.Error(t, err)
	_, code := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeConfig, code)
}
