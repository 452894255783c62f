package loss

import (
	"strconv"

	network_chaos "github.com/chaosgate/chaosgate-go/chaoslib/network-chaos/lib"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// intensity -> packet loss percentage
var lossPercent = map[types.Intensity]int{
	types.IntensityLight:  5,
	types.IntensityMedium: 15,
	types.IntensityHeavy:  30,
}

// New builds the packet_loss fault: a netem loss rule, or probabilistic
// probe drops when shaping is unavailable.
func New(scenario types.ChaosScenario, settings environment.Settings, rc *types.RunContext, dryRun bool) *network_chaos.NetworkChaos {
	percent := lossPercent[scenario.Intensity]
	perturbation := types.Perturbation{DropProbability: float64(percent) / 100}
	return network_chaos.NewNetworkChaos(string(types.FailureTypePacketLoss), scenario, settings, rc, dryRun, NetemArgs(percent), perturbation)
}

// NetemArgs renders the loss arguments for tc.
func NetemArgs(percent int) []string {
	return []string{"loss", strconv.Itoa(percent) + "%"}
}
