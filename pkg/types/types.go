package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
)

// FailureType enumerates the faults the engine knows how to inject.
// The set is closed: the injector dispatches over it with a compile-time
// checked switch, one chaoslib implementation per type.
type FailureType string

const (
	FailureTypeCPU                FailureType = "cpu"
	FailureTypeMemory             FailureType = "memory"
	FailureTypeDiskIO             FailureType = "disk_io"
	FailureTypeNetworkLatency     FailureType = "network_latency"
	FailureTypePacketLoss         FailureType = "packet_loss"
	FailureTypeContainerCrash     FailureType = "container_crash"
	FailureTypeDependencyDowntime FailureType = "dependency_downtime"
)

// FailureTypes lists every supported failure type, in catalog order.
var FailureTypes = []FailureType{
	FailureTypeCPU,
	FailureTypeMemory,
	FailureTypeDiskIO,
	FailureTypeNetworkLatency,
	FailureTypePacketLoss,
	FailureTypeContainerCrash,
	FailureTypeDependencyDowntime,
}

// ParseFailureType validates the raw catalog value against the closed enum
func ParseFailureType(raw string) (FailureType, error) {
	for _, ft := range FailureTypes {
		if string(ft) == raw {
			return ft, nil
		}
	}
	return "", cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: fmt.Sprintf("'%s' failure type is not supported", raw)}
}

// Intensity selects the concrete fault parameters. Continuous faults accept
// light|medium|heavy; discrete outage faults additionally accept short|extended.
type Intensity string

const (
	IntensityLight    Intensity = "light"
	IntensityMedium   Intensity = "medium"
	IntensityHeavy    Intensity = "heavy"
	IntensityShort    Intensity = "short"
	IntensityExtended Intensity = "extended"
)

// AbortThresholds is the optional per-scenario hard-abort condition, evaluated
// over a rolling window of recent chaos-phase samples.
type AbortThresholds struct {
	MaxErrorRatePercent float64 `yaml:"max_error_rate_percent" json:"max_error_rate_percent"`
	WindowSamples       int     `yaml:"window_samples,omitempty" json:"window_samples,omitempty"`
}

// SLOThreshold is one metric threshold plus its comparator (`<=` or `>=`).
// Comparisons are inclusive: a metric exactly equal to its threshold passes.
type SLOThreshold struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	Comparator string  `yaml:"comparator" json:"comparator"`
}

// SLOProfile maps metric name -> threshold for one environment.
type SLOProfile map[string]SLOThreshold

// Metric names understood by the validator, in canonical violation order.
const (
	MetricMTTRSeconds           = "mttr_seconds"
	MetricMaxErrorRatePercent   = "max_error_rate_percent"
	MetricMinAvailability       = "min_availability_percent"
	MetricMaxLatencyDegradation = "max_latency_degradation_ms"
	MetricMaxRecoverySeconds    = "max_recovery_seconds"
)

// MetricOrder fixes the order violations are reported in.
var MetricOrder = []string{
	MetricMTTRSeconds,
	MetricMaxErrorRatePercent,
	MetricMinAvailability,
	MetricMaxLatencyDegradation,
	MetricMaxRecoverySeconds,
}

// ChaosScenario is one configured fault-injection experiment. Immutable once
// loaded from the catalog.
type ChaosScenario struct {
	Name            string      `yaml:"name" json:"name"`
	FailureType     FailureType `yaml:"failure_type" json:"failure_type"`
	Intensity       Intensity   `yaml:"intensity" json:"intensity"`
	DurationSeconds int         `yaml:"duration_seconds" json:"duration_seconds"`

	// Target is the health-probe URL of the system under test.
	Target string `yaml:"target" json:"target"`

	// FaultTarget is the optional fault handle: `container:<name-or-id>` for
	// the discrete docker faults, `pid:<n>` for cgroup-scoped stress faults.
	FaultTarget string `yaml:"fault_target,omitempty" json:"fault_target,omitempty"`

	// RampSeconds is an optional settle delay before baseline sampling starts.
	RampSeconds int `yaml:"ramp_seconds,omitempty" json:"ramp_seconds,omitempty"`

	// JitterMs applies to network_latency only.
	JitterMs int `yaml:"jitter_ms,omitempty" json:"jitter_ms,omitempty"`

	AbortThresholds *AbortThresholds `yaml:"abort_thresholds,omitempty" json:"abort_thresholds,omitempty"`

	// EnvironmentOverrides lets a scenario tighten or loosen the resolved SLO
	// profile per environment; the scenario value wins over the profile.
	EnvironmentOverrides map[string]SLOProfile `yaml:"environment_overrides,omitempty" json:"environment_overrides,omitempty"`
}

// FaultTargetContainer extracts the container handle from the fault target,
// returning false when the scenario carries none.
func (s ChaosScenario) FaultTargetContainer() (string, bool) {
	if strings.HasPrefix(s.FaultTarget, "container:") {
		return strings.TrimPrefix(s.FaultTarget, "container:"), true
	}
	return "", false
}

// FaultTargetPID extracts the pid handle from the fault target, returning
// false when the scenario carries none or the pid does not parse.
func (s ChaosScenario) FaultTargetPID() (int, bool) {
	if !strings.HasPrefix(s.FaultTarget, "pid:") {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimPrefix(s.FaultTarget, "pid:"))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
