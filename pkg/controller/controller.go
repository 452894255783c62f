package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/events"
	"github.com/chaosgate/chaosgate-go/pkg/injector"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/metrics"
	"github.com/chaosgate/chaosgate-go/pkg/probe"
	"github.com/chaosgate/chaosgate-go/pkg/sampler"
	"github.com/chaosgate/chaosgate-go/pkg/scenario"
	"github.com/chaosgate/chaosgate-go/pkg/status"
	"github.com/chaosgate/chaosgate-go/pkg/telemetry"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/chaosgate/chaosgate-go/pkg/utils/stringutils"
	"github.com/chaosgate/chaosgate-go/pkg/validator"
)

// Controller drives scenario runs end to end: steady-state gate, the three
// sampling windows, fault injection with its abort watcher, aggregation and
// validation. One controller serves many runs; per-run state lives in the
// RunContext.
type Controller struct {
	settings    environment.Settings
	profiles    *scenario.SLOProfiles
	environment string
	dryRun      bool
	meters      *telemetry.Meters
}

func New(settings environment.Settings, profiles *scenario.SLOProfiles, env string, dryRun bool, meters *telemetry.Meters) *Controller {
	return &Controller{
		settings:    settings,
		profiles:    profiles,
		environment: env,
		dryRun:      dryRun,
		meters:      meters,
	}
}

// RunGroup executes the group's scenarios strictly in declaration order,
// never concurrently: two faults at once would corrupt each other's
// measurements. A scenario that cannot be tested yields an error entry and
// the group moves on.
func (c *Controller) RunGroup(ctx context.Context, group string, scenarios []types.ChaosScenario) types.GroupReport {
	report := types.GroupReport{
		Group:       group,
		Environment: c.environment,
		GeneratedAt: time.Now(),
	}
	for _, sc := range scenarios {
		report.Reports = append(report.Reports, c.RunScenario(ctx, sc))
		if ctx.Err() != nil {
			break
		}
	}
	return report
}

// RunScenario executes one scenario and always returns a report; hard
// failures are folded into it rather than returned.
func (c *Controller) RunScenario(ctx context.Context, sc types.ChaosScenario) types.RunReport {
	ctx, span := telemetry.StartTracing(ctx, "run "+sc.Name)
	defer span.End()

	started := time.Now()
	recorder := events.NewRecorder()
	rep := types.RunReport{
		ScenarioName: sc.Name,
		StartedAt:    started,
		DryRun:       c.dryRun,
	}
	fail := func(err error) types.RunReport {
		reason, code := cerrors.GetRootCauseAndErrorCode(err)
		rep.Status = types.ReportStatusError
		rep.FailureReason = reason
		rep.ErrorCode = string(code)
		rep.DurationSeconds = time.Since(started).Seconds()
		rep.Events = recorder.Events()
		c.meters.RunFinished(ctx, string(rep.Status))
		log.Errorf("[Error]: The %s scenario could not be tested: %v", sc.Name, reason)
		return rep
	}

	profile, err := scenario.ResolveThresholds(sc, c.profiles, c.environment)
	if err != nil {
		return fail(err)
	}

	rc := types.NewRunContext(sc, stringutils.GetRunID())
	inj, err := injector.New(sc, c.settings, rc, c.dryRun)
	if err != nil {
		return fail(err)
	}

	if c.dryRun {
		if err := inj.Run(ctx); err != nil {
			return fail(err)
		}
		rep.Status = types.ReportStatusPassed
		rep.DegradedMode = inj.DegradedMode()
		rep.Result = simulatedResult(sc)
		rep.DurationSeconds = time.Since(started).Seconds()
		rep.Events = recorder.Events()
		return rep
	}

	prober := probe.NewHTTPProber(sc.Target, c.settings.ProbeTimeout, c.settings.InsecureSkipVerify)
	if err := status.CheckTargetSteadyState(ctx, prober, c.settings.ProbeTimeout*5, c.settings.ProbeInterval); err != nil {
		return fail(err)
	}
	recorder.Record(events.SteadyStateChecked, fmt.Sprintf("target %s is healthy", sc.Target))
	recorder.Record(events.RunStarted, fmt.Sprintf("run %s started for scenario %s", rc.RunID, sc.Name))

	// sampling spans all three windows; it stops only when the run is over
	samplerCtx, stopSampler := context.WithCancel(context.Background())
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		sampler.New(prober, rc, c.settings.ProbeInterval, c.meters).Run(samplerCtx)
	}()
	defer func() {
		stopSampler()
		<-samplerDone
	}()

	if sc.RampSeconds > 0 {
		log.Infof("[Wait]: Letting the target settle for %ds", sc.RampSeconds)
		if !waitFor(ctx, time.Duration(sc.RampSeconds)*time.Second) {
			return c.aborted(ctx, rep, rc, inj, recorder, started, profile)
		}
	}

	log.Infof("[Status]: Collecting the baseline for %v", c.settings.BaselineWindow)
	if !waitFor(ctx, c.settings.BaselineWindow) {
		return c.aborted(ctx, rep, rc, inj, recorder, started, profile)
	}
	rc.Boundaries.BaselineEnd = time.Now()
	rc.AdvancePhase(types.PhaseChaos)
	recorder.Record(events.PhaseTransition, "baseline window closed, entering chaos")

	injCtx, stopInjection := context.WithCancel(ctx)
	defer stopInjection()

	abortDone := make(chan struct{})
	if sc.AbortThresholds != nil {
		go func() {
			defer close(abortDone)
			c.watchAbort(injCtx, rc, *sc.AbortThresholds, stopInjection, recorder)
		}()
	} else {
		close(abortDone)
	}

	c.meters.FaultStarted(ctx, string(sc.FailureType))
	recorder.Record(events.ChaosInjected, fmt.Sprintf("injecting %s at %s intensity", sc.FailureType, sc.Intensity))
	injErr := inj.Run(injCtx)
	c.meters.FaultStopped(ctx, string(sc.FailureType))
	stopInjection()
	<-abortDone

	rc.Boundaries.ChaosEnd = time.Now()
	rc.AdvancePhase(types.PhaseRecovery)
	recorder.Record(events.PhaseTransition, "chaos window closed, entering recovery")
	if inj.CleanupRan() {
		recorder.Record(events.CleanupCompleted, fmt.Sprintf("the %s fault was reverted", sc.FailureType))
	}
	rep.DegradedMode = inj.DegradedMode()

	// an abort (watcher or external) skips straight to reporting; any other
	// injection failure is a hard error
	if rc.Status() == types.RunStatusAborted || ctx.Err() != nil {
		return c.aborted(ctx, rep, rc, inj, recorder, started, profile)
	}
	if injErr != nil {
		if _, code := cerrors.GetRootCauseAndErrorCode(injErr); code == cerrors.ErrorTypeAborted {
			return c.aborted(ctx, rep, rc, inj, recorder, started, profile)
		}
		return fail(injErr)
	}

	log.Infof("[Status]: Observing recovery for %v", c.settings.RecoveryWindow)
	if !waitFor(ctx, c.settings.RecoveryWindow) {
		return c.aborted(ctx, rep, rc, inj, recorder, started, profile)
	}
	rc.Boundaries.RecoveryEnd = time.Now()
	rc.TransitionTo(types.RunStatusCompleted)

	stopSampler()
	<-samplerDone

	result, err := c.evaluate(rc, sc, profile)
	if err != nil {
		return fail(err)
	}
	rep.Result = &result
	if result.Passed {
		rep.Status = types.ReportStatusPassed
	} else {
		rep.Status = types.ReportStatusFailed
	}
	rep.DurationSeconds = time.Since(started).Seconds()
	recorder.Record(events.RunCompleted, fmt.Sprintf("run %s finished with status %s", rc.RunID, rep.Status))
	rep.Events = recorder.Events()
	c.meters.RunFinished(ctx, string(rep.Status))
	return rep
}

// aborted finalizes a run that was cut short. Cleanup has already happened
// (or is owed right here); whatever samples exist still get aggregated so
// the report shows what was observed before the stop.
func (c *Controller) aborted(ctx context.Context, rep types.RunReport, rc *types.RunContext, inj *injector.Injector, recorder *events.Recorder, started time.Time, profile types.SLOProfile) types.RunReport {
	if err := inj.CleanupOnce(); err != nil {
		log.Errorf("[Cleanup]: Failed to revert the fault after abort, err: %v", err)
	}
	rc.TransitionTo(types.RunStatusAborted)
	if rc.Boundaries.ChaosEnd.IsZero() {
		rc.Boundaries.ChaosEnd = time.Now()
	}
	rc.Boundaries.RecoveryEnd = time.Now()

	rep.Status = types.ReportStatusAborted
	rep.DegradedMode = inj.DegradedMode()
	if result, err := c.evaluate(rc, rc.Scenario, profile); err == nil {
		rep.Result = &result
	}
	rep.DurationSeconds = time.Since(started).Seconds()
	recorder.Record(events.RunCompleted, fmt.Sprintf("run %s aborted", rc.RunID))
	rep.Events = recorder.Events()
	c.meters.RunFinished(ctx, string(rep.Status))
	return rep
}

// simulatedResult stands in for the validation result of a dry run: the
// parameters resolved and a strategy was picked, but nothing was measured,
// so every metric carries the insufficient_data sentinel and no violation
// can exist. The report still round-trips like a real one.
func simulatedResult(sc types.ChaosScenario) *types.ValidationResult {
	return &types.ValidationResult{
		ScenarioName: sc.Name,
		Metrics: types.AggregatedMetrics{
			MTTRSeconds:          types.InsufficientData(),
			ErrorRatePercent:     types.InsufficientData(),
			AvailabilityPercent:  types.InsufficientData(),
			LatencyDegradationMs: types.InsufficientData(),
			RecoverySeconds:      types.InsufficientData(),
			BaselineP95Ms:        types.InsufficientData(),
			ChaosP95Ms:           types.InsufficientData(),
		},
		Passed: true,
	}
}

func (c *Controller) evaluate(rc *types.RunContext, sc types.ChaosScenario, profile types.SLOProfile) (types.ValidationResult, error) {
	aggregated, err := metrics.Aggregate(rc, metrics.Options{
		RecoveryStreak:          c.settings.RecoveryStreak,
		LatencyTolerancePercent: c.settings.LatencyTolerancePercent,
	})
	if err != nil {
		return types.ValidationResult{}, err
	}
	return validator.Validate(sc.Name, aggregated, profile), nil
}

// watchAbort trips the scenario's hard-abort condition: it keeps a rolling
// window over the most recent chaos-phase samples and aborts the injection
// the moment the window's error rate exceeds the threshold. A partial window
// never trips; early failures must not kill the run before there is signal.
func (c *Controller) watchAbort(ctx context.Context, rc *types.RunContext, thresholds types.AbortThresholds, stopInjection func(), recorder *events.Recorder) {
	window := thresholds.WindowSamples
	if window <= 0 {
		window = c.settings.AbortWindowSamples
	}
	if window <= 0 {
		window = 5
	}
	interval := c.settings.ProbeInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rate, full := chaosWindowErrorRate(rc.Samples.Snapshot(), window)
			if !full || rate <= thresholds.MaxErrorRatePercent {
				continue
			}
			recorder.Record(events.AbortTriggered, fmt.Sprintf("error rate %.1f%% over the last %d samples exceeded the %.1f%% abort threshold", rate, window, thresholds.MaxErrorRatePercent))
			if rc.TransitionTo(types.RunStatusAborted) {
				stopInjection()
			}
			return
		}
	}
}

// chaosWindowErrorRate computes the failure percentage over the last
// `window` chaos-phase samples; full is false until the window is filled.
func chaosWindowErrorRate(samples []types.ProbeSample, window int) (rate float64, full bool) {
	var chaos []types.ProbeSample
	for _, s := range samples {
		if s.Phase == types.PhaseChaos {
			chaos = append(chaos, s)
		}
	}
	if len(chaos) < window {
		return 0, false
	}
	chaos = chaos[len(chaos)-window:]
	failures := 0
	for _, s := range chaos {
		if !s.Success {
			failures++
		}
	}
	return float64(failures) / float64(window) * 100, true
}

// waitFor sleeps for the window unless the context is cancelled first.
func waitFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
