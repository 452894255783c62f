package validator

import (
	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/probe/comparator"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// Validate compares the aggregated metrics against the resolved SLO profile
// and returns the verdict. Only metrics the profile carries a threshold for
// are checked; violations come out in canonical metric order. A sentinel
// metric that has a threshold is always a violation: "we could not prove
// recovery" must fail the gate, not pass it.
func Validate(scenarioName string, metrics types.AggregatedMetrics, profile types.SLOProfile) types.ValidationResult {
	result := types.ValidationResult{
		ScenarioName: scenarioName,
		Metrics:      metrics,
		Violations:   []types.Violation{},
	}

	for _, name := range types.MetricOrder {
		threshold, ok := profile[name]
		if !ok {
			continue
		}
		actual := metricByName(metrics, name)

		if !actual.IsMeasured() {
			log.Warnf("[Status]: The %s SLO cannot be verified: metric is %s", name, actual.State)
			result.Violations = append(result.Violations, types.Violation{
				Metric:     name,
				Expected:   threshold.Threshold,
				Comparator: threshold.Comparator,
				Actual:     actual,
			})
			continue
		}

		err := comparator.
			FirstValue(actual.Value).
			SecondValue(threshold.Threshold).
			Criteria(threshold.Comparator).
			Metric(name).
			CompareFloat(cerrors.ErrorTypeSLOValidation)
		if err != nil {
			log.Warnf("[Status]: SLO violated, %v", err)
			result.Violations = append(result.Violations, types.Violation{
				Metric:     name,
				Expected:   threshold.Threshold,
				Comparator: threshold.Comparator,
				Actual:     actual,
			})
		}
	}

	result.Passed = len(result.Violations) == 0
	return result
}

func metricByName(m types.AggregatedMetrics, name string) types.MetricValue {
	switch name {
	case types.MetricMTTRSeconds:
		return m.MTTRSeconds
	case types.MetricMaxErrorRatePercent:
		return m.ErrorRatePercent
	case types.MetricMinAvailability:
		return m.AvailabilityPercent
	case types.MetricMaxLatencyDegradation:
		return m.LatencyDegradationMs
	case types.MetricMaxRecoverySeconds:
		return m.RecoverySeconds
	}
	return types.InsufficientData()
}
