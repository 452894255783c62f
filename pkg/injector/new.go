package injector

import (
	"fmt"
	"time"

	container_crash "github.com/chaosgate/chaosgate-go/chaoslib/container-crash/lib"
	dependency_downtime "github.com/chaosgate/chaosgate-go/chaoslib/dependency-downtime/lib"
	"github.com/chaosgate/chaosgate-go/chaoslib/network-chaos/lib/latency"
	"github.com/chaosgate/chaosgate-go/chaoslib/network-chaos/lib/loss"
	stress_chaos "github.com/chaosgate/chaosgate-go/chaoslib/stress-chaos/lib"
	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// New builds the injector for the scenario's failure type. The switch is
// closed over the supported faults; scenario validation should have caught
// anything else long before this point.
func New(scenario types.ChaosScenario, settings environment.Settings, rc *types.RunContext, dryRun bool) (*Injector, error) {
	var fault Fault
	switch scenario.FailureType {
	case types.FailureTypeCPU, types.FailureTypeMemory, types.FailureTypeDiskIO:
		fault = stress_chaos.New(scenario, settings, dryRun)
	case types.FailureTypeNetworkLatency:
		fault = latency.New(scenario, settings, rc, dryRun)
	case types.FailureTypePacketLoss:
		fault = loss.New(scenario, settings, rc, dryRun)
	case types.FailureTypeContainerCrash:
		fault = container_crash.New(scenario, settings, dryRun)
	case types.FailureTypeDependencyDowntime:
		fault = dependency_downtime.New(scenario, settings, dryRun)
	default:
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: scenario.Name, Reason: fmt.Sprintf("no chaoslib implements the '%s' failure type", scenario.FailureType)}
	}
	duration := time.Duration(scenario.DurationSeconds) * time.Second
	return NewInjector(fault, duration, settings.GracePeriod, dryRun), nil
}
