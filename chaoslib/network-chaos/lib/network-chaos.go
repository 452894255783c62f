package lib

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NetworkChaos injects the network_latency and packet_loss faults. The
// primary mechanism installs a tc netem qdisc on the configured interface;
// when tc is unavailable or the process lacks root it falls back to the
// probe-side perturbation cell and records degraded mode.
type NetworkChaos struct {
	faultName string
	scenario  types.ChaosScenario
	settings  environment.Settings
	rc        *types.RunContext
	dryRun    bool

	netemArgs    []string
	perturbation types.Perturbation
	degraded     bool
	qdiscAdded   bool
}

// NewNetworkChaos wires a netem fault; the latency and loss sub-packages
// supply the fault-specific netem arguments and the equivalent probe-side
// perturbation.
func NewNetworkChaos(faultName string, scenario types.ChaosScenario, settings environment.Settings, rc *types.RunContext, dryRun bool, netemArgs []string, perturbation types.Perturbation) *NetworkChaos {
	return &NetworkChaos{
		faultName:    faultName,
		scenario:     scenario,
		settings:     settings,
		rc:           rc,
		dryRun:       dryRun,
		netemArgs:    netemArgs,
		perturbation: perturbation,
	}
}

func (n *NetworkChaos) Name() string {
	return n.faultName
}

func (n *NetworkChaos) DegradedMode() bool {
	return n.degraded
}

// Prepare decides between the tc mechanism and the probe-side fallback.
// Traffic shaping needs both the tc binary and root.
func (n *NetworkChaos) Prepare(ctx context.Context) error {
	if _, err := exec.LookPath("tc"); err != nil {
		n.degraded = true
	} else if os.Geteuid() != 0 {
		n.degraded = true
	}

	strategy := "tc netem on " + n.settings.NetworkInterface
	if n.degraded {
		strategy = "probe-side perturbation (degraded mode)"
	}
	prefix := "[PreReq]"
	if n.dryRun {
		prefix = "[DryRun]"
	}
	log.InfoWithValues(prefix+": Details of the network fault:", logrus.Fields{
		"Failure Type": n.scenario.FailureType,
		"Intensity":    n.scenario.Intensity,
		"Netem":        strings.Join(n.netemArgs, " "),
		"Duration":     n.scenario.DurationSeconds,
		"Strategy":     strategy,
	})
	return nil
}

// Inject installs the fault and holds it for the scenario duration or until
// the context is cancelled, whichever comes first.
func (n *NetworkChaos) Inject(ctx context.Context) error {
	if n.degraded {
		n.rc.SetPerturbation(&n.perturbation)
		log.Infof("[Chaos]: Probe-side perturbation installed: %+v", n.perturbation)
	} else {
		args := append([]string{"qdisc", "add", "dev", n.settings.NetworkInterface, "root", "netem"}, n.netemArgs...)
		log.Infof("[Chaos]: Running command: tc %s", strings.Join(args, " "))
		if out, err := exec.Command("tc", args...).CombinedOutput(); err != nil {
			return errors.Errorf("fail to install the netem qdisc, err: %v, output: %s", err, string(out))
		}
		n.qdiscAdded = true
	}

	log.Info("[Wait]: Waiting for chaos completion")
	timer := time.NewTimer(time.Duration(n.scenario.DurationSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return nil
}

// Cleanup removes the fault. Idempotent across retries: a missing qdisc and
// an already-cleared perturbation cell are both fine.
func (n *NetworkChaos) Cleanup() error {
	if n.degraded {
		n.rc.SetPerturbation(nil)
		return nil
	}
	if !n.qdiscAdded {
		return nil
	}

	args := []string{"qdisc", "delete", "dev", n.settings.NetworkInterface, "root", "netem"}
	if out, err := exec.Command("tc", args...).CombinedOutput(); err != nil {
		// nothing left to remove if an earlier attempt already deleted it
		if strings.Contains(string(out), "Cannot delete qdisc with handle of zero") ||
			strings.Contains(string(out), "Invalid handle") {
			return nil
		}
		return errors.Errorf("fail to remove the netem qdisc, err: %v, output: %s", err, string(out))
	}
	n.qdiscAdded = false
	return nil
}
