package lib

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/containerd/cgroups"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const ProcessAlreadyFinished = "os: process already finished"

// intensity -> concrete stress parameters
var (
	cpuWorkers  = map[types.Intensity]int{types.IntensityLight: 2, types.IntensityMedium: 4, types.IntensityHeavy: 8}
	memoryMB    = map[types.Intensity]int{types.IntensityLight: 256, types.IntensityMedium: 512, types.IntensityHeavy: 1024}
	diskWorkers = map[types.Intensity]int{types.IntensityLight: 1, types.IntensityMedium: 2, types.IntensityHeavy: 4}
)

// StressChaos injects the cpu, memory and disk_io faults. The primary
// mechanism spawns stress-ng with a --timeout matching the chaos duration;
// when stress-ng is not installed it falls back to in-process workers and
// records degraded mode.
type StressChaos struct {
	scenario types.ChaosScenario
	settings environment.Settings
	dryRun   bool

	stressors []string
	workers   int
	ballastMB int
	degraded  bool
	targetPID int

	mu       sync.Mutex
	cmd      *exec.Cmd
	fallback *inProcessStress
}

func New(scenario types.ChaosScenario, settings environment.Settings, dryRun bool) *StressChaos {
	return &StressChaos{scenario: scenario, settings: settings, dryRun: dryRun}
}

func (s *StressChaos) Name() string {
	return string(s.scenario.FailureType)
}

func (s *StressChaos) DegradedMode() bool {
	return s.degraded
}

// Prepare resolves intensity into stressor parameters and picks the
// mechanism. dry_run stops after logging what would be used.
func (s *StressChaos) Prepare(ctx context.Context) error {
	if err := s.prepareStressors(); err != nil {
		return err
	}

	if _, err := exec.LookPath("stress-ng"); err != nil {
		// stress faults always have an in-process approximation
		s.degraded = true
		s.fallback = newInProcessStress(s.scenario.FailureType, s.workers, s.ballastMB)
	}

	if pid, ok := s.scenario.FaultTargetPID(); ok {
		if s.degraded {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: s.scenario.FaultTarget, Reason: "cgroup-scoped stress requires stress-ng, which is not installed"}
		}
		s.targetPID = pid
	}

	strategy := "stress-ng"
	if s.degraded {
		strategy = "in-process workers (degraded mode)"
	}
	prefix := "[PreReq]"
	if s.dryRun {
		prefix = "[DryRun]"
	}
	log.InfoWithValues(prefix+": Details of the stressor:", logrus.Fields{
		"Failure Type": s.scenario.FailureType,
		"Intensity":    s.scenario.Intensity,
		"Workers":      s.workers,
		"Memory (MB)":  s.ballastMB,
		"Duration":     s.scenario.DurationSeconds,
		"Strategy":     strategy,
	})
	return nil
}

// prepareStressors will set the required stressors for the given fault
func (s *StressChaos) prepareStressors() error {
	duration := s.scenario.DurationSeconds
	stressArgs := []string{
		"--timeout",
		strconv.Itoa(duration) + "s",
	}

	switch s.scenario.FailureType {
	case types.FailureTypeCPU:
		s.workers = cpuWorkers[s.scenario.Intensity]
		stressArgs = append(stressArgs, "--cpu", strconv.Itoa(s.workers))

	case types.FailureTypeMemory:
		s.workers = 1
		s.ballastMB = memoryMB[s.scenario.Intensity]
		stressArgs = append(stressArgs, "--vm", strconv.Itoa(s.workers), "--vm-bytes", strconv.Itoa(s.ballastMB)+"M", "--vm-hang", "0")

	case types.FailureTypeDiskIO:
		s.workers = diskWorkers[s.scenario.Intensity]
		stressArgs = append(stressArgs, "--io", strconv.Itoa(s.workers), "--hdd", strconv.Itoa(s.workers))

	default:
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: s.Name(), Reason: fmt.Sprintf("no stressor available for the %s fault", s.scenario.FailureType)}
	}

	if s.workers == 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeInjection, Target: s.Name(), Reason: fmt.Sprintf("unable to resolve '%s' intensity into stressor parameters", s.scenario.Intensity)}
	}
	s.stressors = stressArgs
	return nil
}

// Inject runs the fault for the scenario duration. It returns once the
// stress process exits or the context is cancelled.
func (s *StressChaos) Inject(ctx context.Context) error {
	if s.fallback != nil {
		return s.fallback.run(ctx, s.scenario.DurationSeconds)
	}

	cmd := exec.Command("stress-ng", s.stressors...)
	if err := cmd.Start(); err != nil {
		return errors.Errorf("fail to start the stress process, err: %v", err)
	}
	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	// scope the stressors to the target's cgroup when a pid handle was given
	if s.targetPID != 0 {
		if err := s.joinCgroup(cmd.Process.Pid); err != nil {
			if killErr := cmd.Process.Kill(); killErr != nil && killErr.Error() != ProcessAlreadyFinished {
				log.Errorf("unable to kill stress process after cgroup failure, err: %v", killErr)
			}
			return err
		}
	}

	log.Info("[Wait]: Waiting for chaos completion")
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		// cleanup terminates the process; wait for it to be reaped
		<-done
		return nil
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				status := exitErr.Sys().(syscall.WaitStatus)
				if status.Signaled() {
					// killed by cleanup, not a fault failure
					return nil
				}
			}
			return errors.Errorf("the stress process exited unexpectedly, err: %v", err)
		}
		return nil
	}
}

func (s *StressChaos) joinCgroup(stressPID int) error {
	control, err := cgroups.Load(cgroups.V1, cgroups.PidPath(s.targetPID))
	if err != nil {
		return errors.Errorf("fail to load the cgroup of pid %d, err: %v", s.targetPID, err)
	}
	if err := control.Add(cgroups.Process{Pid: stressPID}); err != nil {
		return errors.Errorf("fail to add the stress process into the target cgroup, err: %v", err)
	}
	log.Infof("[Info]: Stress process joined the cgroup of pid %d", s.targetPID)
	return nil
}

// Cleanup terminates the stress workers. Idempotent: terminating an already
// finished process is not an error.
func (s *StressChaos) Cleanup() error {
	if s.fallback != nil {
		s.fallback.stop()
		return nil
	}

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return terminateProcess(cmd.Process.Pid)
}

//terminateProcess will remove the stress process after chaos completion
func terminateProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Errorf("unreachable path, err: %v", err)
	}
	if err = process.Signal(syscall.SIGTERM); err != nil && err.Error() != ProcessAlreadyFinished {
		return errors.Errorf("error while killing process, err: %v", err)
	}
	return nil
}
