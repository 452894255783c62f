package metrics

import (
	"sort"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	stdmath "github.com/chaosgate/chaosgate-go/pkg/math"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/sirupsen/logrus"
)

// Options tune the recovery detection.
type Options struct {
	// RecoveryStreak is K: the MTTR marker is the first sample of the first
	// K-consecutive-success run at or after the chaos end boundary.
	RecoveryStreak int

	// LatencyTolerancePercent widens the baseline p95 band a recovered
	// sample's latency must fall inside.
	LatencyTolerancePercent float64
}

// Aggregate computes the run's resilience metrics from the sample buffer.
// It must only be called on a terminal run: sampling has stopped and the
// phase boundaries are final. A metric that cannot be computed keeps its
// sentinel state; it is never coerced to zero.
func Aggregate(rc *types.RunContext, opts Options) (types.AggregatedMetrics, error) {
	if rc.Status() == types.RunStatusRunning {
		return types.AggregatedMetrics{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: rc.Scenario.Name, Reason: "cannot aggregate metrics while the run is still sampling"}
	}
	opts.RecoveryStreak = stdmath.Maximum(opts.RecoveryStreak, 1)

	samples := rc.Samples.Snapshot()
	baseline := byPhase(samples, types.PhaseBaseline)
	chaos := byPhase(samples, types.PhaseChaos)

	m := types.AggregatedMetrics{
		ErrorRatePercent:     errorRate(chaos),
		AvailabilityPercent:  availability(chaos),
		BaselineP95Ms:        p95(baseline),
		ChaosP95Ms:           p95(chaos),
		MTTRSeconds:          mttr(samples, rc.Boundaries.ChaosEnd, opts.RecoveryStreak),
		LatencyDegradationMs: types.InsufficientData(),
		RecoverySeconds:      types.InsufficientData(),
	}

	if m.BaselineP95Ms.IsMeasured() && m.ChaosP95Ms.IsMeasured() {
		m.LatencyDegradationMs = types.Measured(m.ChaosP95Ms.Value - m.BaselineP95Ms.Value)
	}
	if m.BaselineP95Ms.IsMeasured() {
		band := m.BaselineP95Ms.Value * (1 + opts.LatencyTolerancePercent/100)
		m.RecoverySeconds = recoveryTime(samples, rc.Boundaries.ChaosEnd, band)
	}

	log.InfoWithValues("[Status]: Aggregated run metrics:", logrus.Fields{
		"Error Rate (%)":   m.ErrorRatePercent.String(),
		"Availability (%)": m.AvailabilityPercent.String(),
		"P95 Degradation":  m.LatencyDegradationMs.String(),
		"MTTR (s)":         m.MTTRSeconds.String(),
		"Recovery (s)":     m.RecoverySeconds.String(),
	})
	return m, nil
}

func byPhase(samples []types.ProbeSample, phase types.Phase) []types.ProbeSample {
	var out []types.ProbeSample
	for _, s := range samples {
		if s.Phase == phase {
			out = append(out, s)
		}
	}
	return out
}

// errorRate is the failure percentage over the chaos window.
func errorRate(chaos []types.ProbeSample) types.MetricValue {
	if len(chaos) == 0 {
		return types.InsufficientData()
	}
	failures := 0
	for _, s := range chaos {
		if !s.Success {
			failures++
		}
	}
	return types.Measured(float64(failures) / float64(len(chaos)) * 100)
}

// availability is the success percentage over the chaos window. A fully
// failed window is a measured 0, not a sentinel.
func availability(chaos []types.ProbeSample) types.MetricValue {
	if len(chaos) == 0 {
		return types.InsufficientData()
	}
	successes := 0
	for _, s := range chaos {
		if s.Success {
			successes++
		}
	}
	return types.Measured(float64(successes) / float64(len(chaos)) * 100)
}

// p95 is the nearest-rank 95th percentile over the successful samples of one
// phase. Failed samples carry no latency and cannot contribute.
func p95(samples []types.ProbeSample) types.MetricValue {
	var latencies []float64
	for _, s := range samples {
		if s.Success && s.LatencyMs != nil {
			latencies = append(latencies, *s.LatencyMs)
		}
	}
	if len(latencies) == 0 {
		return types.InsufficientData()
	}
	sort.Float64s(latencies)
	return types.Measured(latencies[stdmath.NearestRankIndex(len(latencies), 95)])
}

// mttr is the time from the chaos end boundary to the first sample of the
// first run of `streak` consecutive successes at or after that boundary.
func mttr(samples []types.ProbeSample, chaosEnd time.Time, streak int) types.MetricValue {
	run := 0
	var runStart time.Time
	for _, s := range samples {
		if s.Timestamp.Before(chaosEnd) {
			continue
		}
		if !s.Success {
			run = 0
			continue
		}
		if run == 0 {
			runStart = s.Timestamp
		}
		run++
		if run >= streak {
			return types.Measured(runStart.Sub(chaosEnd).Seconds())
		}
	}
	return types.NotRecovered()
}

// recoveryTime is the time from the chaos end boundary to the first
// successful sample whose latency is back inside the baseline band.
func recoveryTime(samples []types.ProbeSample, chaosEnd time.Time, bandMs float64) types.MetricValue {
	for _, s := range samples {
		if s.Timestamp.Before(chaosEnd) || !s.Success || s.LatencyMs == nil {
			continue
		}
		if *s.LatencyMs <= bandMs {
			return types.Measured(s.Timestamp.Sub(chaosEnd).Seconds())
		}
	}
	return types.NotRecovered()
}
