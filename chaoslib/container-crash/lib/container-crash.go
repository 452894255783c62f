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
	"github.com/chaosgate/chaosgate-go/pkg/utils/retry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ContainerCrash kills the target container and waits for the runtime's
// restart policy to bring it back. There is no in-process approximation for
// killing a container, so an unusable docker CLI fails the fault outright.
type ContainerCrash struct {
	scenario  types.ChaosScenario
	settings  environment.Settings
	dryRun    bool
	container string
}

func New(scenario types.ChaosScenario, settings environment.Settings, dryRun bool) *ContainerCrash {
	return &ContainerCrash{scenario: scenario, settings: settings, dryRun: dryRun}
}

func (c *ContainerCrash) Name() string {
	return string(types.FailureTypeContainerCrash)
}

// DegradedMode is always false: container_crash has no fallback strategy.
func (c *ContainerCrash) DegradedMode() bool {
	return false
}

// Prepare verifies the docker CLI is usable and the fault target resolves to
// a running container. Failing here keeps the run out of the Active state.
func (c *ContainerCrash) Prepare(ctx context.Context) error {
	container, ok := c.scenario.FaultTargetContainer()
	if !ok {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: c.scenario.Name, Reason: "container_crash needs a 'container:<name-or-id>' fault target"}
	}
	c.container = container

	if _, err := exec.LookPath("docker"); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: c.target(), Reason: "docker CLI is not installed and container_crash has no fallback"}
	}

	prefix := "[PreReq]"
	if c.dryRun {
		prefix = "[DryRun]"
	}
	log.InfoWithValues(prefix+": Details of the container crash:", logrus.Fields{
		"Container": c.container,
		"Intensity": c.scenario.Intensity,
	})

	if c.dryRun {
		return nil
	}

	running, err := c.isRunning()
	if err != nil {
		return err
	}
	if !running {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: c.target(), Reason: "target container is not running"}
	}
	return nil
}

// Inject kills the container and waits for its restart policy to revive it,
// bounded by the scenario duration plus the grace period.
func (c *ContainerCrash) Inject(ctx context.Context) error {
	log.Infof("[Chaos]: Killing the %v container", c.container)
	if out, err := exec.Command("docker", "kill", c.container).CombinedOutput(); err != nil {
		return errors.Errorf("fail to kill the container, err: %v, output: %s", err, string(out))
	}

	log.Info("[Wait]: Waiting for the container to restart")
	budget := time.Duration(c.scenario.DurationSeconds)*time.Second + c.settings.GracePeriod
	delay := time.Second
	return retry.
		Times(uint(budget / delay)).
		Wait(delay).
		Try(func(attempt uint) error {
			select {
			case <-ctx.Done():
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeAborted, Target: c.target(), Reason: "run aborted while waiting for the container restart"}
			default:
			}
			running, err := c.isRunning()
			if err != nil {
				return err
			}
			if !running {
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: c.target(), Reason: "container has not restarted yet"}
			}
			log.Infof("[Info]: The %v container restarted", c.container)
			return nil
		})
}

// Cleanup has nothing to revert: the kill is one-shot and the runtime owns
// the restart.
func (c *ContainerCrash) Cleanup() error {
	return nil
}

func (c *ContainerCrash) target() string {
	return "{container: " + c.container + "}"
}

func (c *ContainerCrash) isRunning() (bool, error) {
	out, err := exec.Command("docker", "inspect", "-f", "{{.State.Running}}", c.container).CombinedOutput()
	if err != nil {
		return false, errors.Errorf("fail to inspect the container, err: %v, output: %s", err, string(out))
	}
	return strings.TrimSpace(string(out)) == "true", nil
}
