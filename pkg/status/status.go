package status

import (
	"context"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/probe"
	"github.com/chaosgate/chaosgate-go/pkg/utils/retry"
	"github.com/pkg/errors"
)

// CheckTargetSteadyState verifies the system under test is healthy before any
// fault is applied. A target that cannot pass its own health probe would make
// every downstream metric meaningless, so this gate maps to a "could not
// test" outcome rather than an SLO failure.
func CheckTargetSteadyState(ctx context.Context, prober *probe.HTTPProber, timeout, delay time.Duration) error {
	log.Info("[Status]: Checking whether the target is healthy (pre-chaos)")

	attempts := uint(1)
	if delay > 0 && timeout > delay {
		attempts = uint(timeout / delay)
	}

	// a probe that only answers after the whole gate budget has elapsed is
	// not steady either, so each attempt carries the budget as its timeout
	err := retry.
		Times(attempts).
		Wait(delay).
		Timeout(timeout).
		TryWithTimeout(func(attempt uint) error {
			outcome := prober.Probe(ctx)
			if !outcome.Success {
				return errors.Errorf("target probe failed, %v", outcome.Reason)
			}
			return nil
		})
	if err != nil {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeSteadyState,
			Phase:     "PreChaos",
			Target:    prober.URL(),
			Reason:    err.Error(),
		}
	}
	log.Info("[Status]: The target is in a healthy state (pre-chaos)")
	return nil
}
