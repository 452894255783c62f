package latency

import (
	"strconv"
	"time"

	network_chaos "github.com/chaosgate/chaosgate-go/chaoslib/network-chaos/lib"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// intensity -> injected one-way delay
var latencyMs = map[types.Intensity]int{
	types.IntensityLight:  50,
	types.IntensityMedium: 200,
	types.IntensityHeavy:  500,
}

// New builds the network_latency fault: a netem delay with optional jitter,
// or the equivalent probe-side delay when shaping is unavailable.
func New(scenario types.ChaosScenario, settings environment.Settings, rc *types.RunContext, dryRun bool) *network_chaos.NetworkChaos {
	delay := latencyMs[scenario.Intensity]
	args := NetemArgs(delay, scenario.JitterMs)
	perturbation := types.Perturbation{AddedLatency: time.Duration(delay) * time.Millisecond}
	return network_chaos.NewNetworkChaos(string(types.FailureTypeNetworkLatency), scenario, settings, rc, dryRun, args, perturbation)
}

// NetemArgs renders the delay arguments for tc.
func NetemArgs(delayMs, jitterMs int) []string {
	args := []string{"delay", strconv.Itoa(delayMs) + "ms"}
	if jitterMs > 0 {
		args = append(args, strconv.Itoa(jitterMs)+"ms")
	}
	return args
}
