package injector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/palantir/stacktrace"
)

// Fault is the closed contract every failure type implements.
//
// Prepare resolves intensity into concrete parameters and picks the primary
// or fallback strategy, failing fast when neither mechanism is available so
// that no partial fault is ever applied. Inject blocks for the fault window and
// must honor context cancellation at its natural suspension points. Cleanup
// must be idempotent; the injector guarantees it runs on every exit path.
type Fault interface {
	Name() string
	Prepare(ctx context.Context) error
	Inject(ctx context.Context) error
	Cleanup() error
	DegradedMode() bool
}

// State of the injection lifecycle.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateActive
	StateCleaningUp
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePreparing:
		return "Preparing"
	case StateActive:
		return "Active"
	case StateCleaningUp:
		return "CleaningUp"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// Injector drives one fault through Idle -> Preparing -> Active ->
// CleaningUp -> {Done, Failed}, enforcing the hard ceiling of
// duration + grace and the exactly-once cleanup invariant.
type Injector struct {
	fault    Fault
	duration time.Duration
	grace    time.Duration
	dryRun   bool

	state       atomic.Int32
	cleanupOnce sync.Once
	cleanupErr  error
	cleanupRan  atomic.Bool
}

func NewInjector(fault Fault, duration, grace time.Duration, dryRun bool) *Injector {
	return &Injector{fault: fault, duration: duration, grace: grace, dryRun: dryRun}
}

// State is observable concurrently; the controller polls it while the fault
// is active.
func (inj *Injector) State() State {
	return State(inj.state.Load())
}

func (inj *Injector) setState(s State) {
	inj.state.Store(int32(s))
}

// DegradedMode reports whether the fault ran on its fallback mechanism.
func (inj *Injector) DegradedMode() bool {
	return inj.fault.DegradedMode()
}

// Run executes the full injection lifecycle. Cancelling ctx aborts the
// active fault; cleanup still runs exactly once.
func (inj *Injector) Run(ctx context.Context) error {
	inj.setState(StatePreparing)
	if err := inj.fault.Prepare(ctx); err != nil {
		// no fault was applied yet, cleanup is a no-op but still owed
		inj.setState(StateCleaningUp)
		inj.CleanupOnce()
		inj.setState(StateFailed)
		return stacktrace.Propagate(err, "could not prepare the %s fault", inj.fault.Name())
	}

	if inj.dryRun {
		// no fault is applied, no cleanup is owed
		log.Infof("[DryRun]: Skipping %s injection, parameters resolved above", inj.fault.Name())
		inj.setState(StateDone)
		return nil
	}

	inj.setState(StateActive)
	log.Infof("[Chaos]: Injecting %s chaos for %vs", inj.fault.Name(), inj.duration.Seconds())

	done := make(chan error, 1)
	go func() { done <- inj.fault.Inject(ctx) }()

	// hard ceiling: the fault mechanism must self-terminate by
	// duration + grace or it gets forcibly cleaned up
	ceiling := time.NewTimer(inj.duration + inj.grace)
	defer ceiling.Stop()

	var injectErr error
	select {
	case <-ctx.Done():
		log.Infof("[Abort]: %s injection interrupted, reverting chaos", inj.fault.Name())
		injectErr = cerrors.Error{ErrorCode: cerrors.ErrorTypeAborted, Target: inj.fault.Name(), Reason: "chaos injection was aborted"}
	case <-ceiling.C:
		log.Errorf("[Timeout]: %s fault did not self-terminate, forcing termination", inj.fault.Name())
		injectErr = cerrors.Error{ErrorCode: cerrors.ErrorTypeTimeout, Target: inj.fault.Name(), Reason: fmt.Sprintf("the fault mechanism timed out after %vs", (inj.duration + inj.grace).Seconds())}
	case err := <-done:
		if err != nil {
			injectErr = stacktrace.Propagate(err, "could not inject the %s fault", inj.fault.Name())
		}
	}

	inj.setState(StateCleaningUp)
	cleanupErr := inj.CleanupOnce()

	if injectErr != nil {
		inj.setState(StateFailed)
		return injectErr
	}
	if cleanupErr != nil {
		inj.setState(StateFailed)
		return stacktrace.Propagate(cleanupErr, "could not revert the %s fault", inj.fault.Name())
	}
	inj.setState(StateDone)
	log.Infof("[Chaos]: %s injection completed", inj.fault.Name())
	return nil
}

// CleanupOnce reverts the fault. Safe to invoke from multiple paths (run
// loop, controller defer, signal handling): the fault's Cleanup is called
// exactly once and the first result is sticky.
func (inj *Injector) CleanupOnce() error {
	inj.cleanupOnce.Do(func() {
		if inj.dryRun {
			return
		}
		log.Infof("[Cleanup]: Reverting the %s fault", inj.fault.Name())
		inj.cleanupErr = inj.fault.Cleanup()
		inj.cleanupRan.Store(true)
		if inj.cleanupErr == nil {
			log.Infof("[Cleanup]: %s fault reverted", inj.fault.Name())
		}
	})
	return inj.cleanupErr
}

// CleanupRan reports whether the fault's Cleanup has executed.
func (inj *Injector) CleanupRan() bool {
	return inj.cleanupRan.Load()
}
