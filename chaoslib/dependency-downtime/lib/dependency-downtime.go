package lib

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// intensity -> outage window
var outageWindow = map[types.Intensity]time.Duration{
	types.IntensityShort:    10 * time.Second,
	types.IntensityExtended: 30 * time.Second,
}

// DependencyDowntime pauses a dependency container for a discrete outage
// window and unpauses it afterwards. Like container_crash it has no fallback:
// an unusable docker CLI fails the fault before it goes active.
type DependencyDowntime struct {
	scenario  types.ChaosScenario
	settings  environment.Settings
	dryRun    bool
	container string
	outage    time.Duration
}

func New(scenario types.ChaosScenario, settings environment.Settings, dryRun bool) *DependencyDowntime {
	return &DependencyDowntime{scenario: scenario, settings: settings, dryRun: dryRun}
}

func (d *DependencyDowntime) Name() string {
	return string(types.FailureTypeDependencyDowntime)
}

func (d *DependencyDowntime) DegradedMode() bool {
	return false
}

// Prepare resolves the outage window and verifies the docker CLI and the
// fault target.
func (d *DependencyDowntime) Prepare(ctx context.Context) error {
	container, ok := d.scenario.FaultTargetContainer()
	if !ok {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: d.scenario.Name, Reason: "dependency_downtime needs a 'container:<name-or-id>' fault target"}
	}
	d.container = container

	outage, ok := outageWindow[d.scenario.Intensity]
	if !ok {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: d.scenario.Name, Reason: "dependency_downtime only supports the short and extended intensities"}
	}
	d.outage = outage

	if _, err := exec.LookPath("docker"); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: d.target(), Reason: "docker CLI is not installed and dependency_downtime has no fallback"}
	}

	prefix := "[PreReq]"
	if d.dryRun {
		prefix = "[DryRun]"
	}
	log.InfoWithValues(prefix+": Details of the dependency outage:", logrus.Fields{
		"Container": d.container,
		"Intensity": d.scenario.Intensity,
		"Outage":    d.outage,
	})
	return nil
}

// Inject pauses the dependency, holds the outage window, then unpauses. An
// abort mid-window skips straight to the unpause in Cleanup.
func (d *DependencyDowntime) Inject(ctx context.Context) error {
	log.Infof("[Chaos]: Pausing the %v container for %v", d.container, d.outage)
	if out, err := exec.Command("docker", "pause", d.container).CombinedOutput(); err != nil {
		return errors.Errorf("fail to pause the container, err: %v, output: %s", err, string(out))
	}

	log.Info("[Wait]: Waiting for the outage window")
	timer := time.NewTimer(d.outage)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	return d.unpause()
}

// Cleanup unconditionally unpauses so an abort or a failed inject never
// leaves the dependency frozen.
func (d *DependencyDowntime) Cleanup() error {
	if d.container == "" {
		return nil
	}
	return d.unpause()
}

func (d *DependencyDowntime) target() string {
	return "{container: " + d.container + "}"
}

func (d *DependencyDowntime) unpause() error {
	out, err := exec.Command("docker", "unpause", d.container).CombinedOutput()
	if err != nil {
		// already resumed by an earlier attempt
		if strings.Contains(string(out), "is not paused") {
			return nil
		}
		return errors.Errorf("fail to unpause the container, err: %v, output: %s", err, string(out))
	}
	log.Infof("[Info]: The %v container resumed", d.container)
	return nil
}
