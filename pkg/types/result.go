package types

import "time"

// AggregatedMetrics is the read-only statistics snapshot computed once from a
// completed run. The raw phase percentiles are carried for debugging.
type AggregatedMetrics struct {
	MTTRSeconds          MetricValue `json:"mttr_seconds"`
	ErrorRatePercent     MetricValue `json:"error_rate_percent"`
	AvailabilityPercent  MetricValue `json:"availability_percent"`
	LatencyDegradationMs MetricValue `json:"latency_degradation_ms"`
	RecoverySeconds      MetricValue `json:"recovery_seconds"`

	BaselineP95Ms MetricValue `json:"baseline_p95_ms"`
	ChaosP95Ms    MetricValue `json:"chaos_p95_ms"`
}

// Violation is one failed SLO comparison, or a sentinel-valued metric that a
// threshold was configured for.
type Violation struct {
	Metric     string      `json:"metric"`
	Expected   float64     `json:"expected"`
	Comparator string      `json:"comparator"`
	Actual     MetricValue `json:"actual"`
}

// ValidationResult is the engine's output contract: metrics plus the ordered
// violation list. Passed is true iff the violation list is empty.
type ValidationResult struct {
	ScenarioName string            `json:"scenario_name"`
	Metrics      AggregatedMetrics `json:"metrics"`
	Violations   []Violation       `json:"violations"`
	Passed       bool              `json:"passed"`
}

// ReportStatus distinguishes "tested and passed/failed" from "could not test".
type ReportStatus string

const (
	ReportStatusPassed  ReportStatus = "passed"
	ReportStatusFailed  ReportStatus = "failed"
	ReportStatusAborted ReportStatus = "aborted"
	ReportStatusError   ReportStatus = "error"
)

// RunEvent is one entry of the run timeline.
type RunEvent struct {
	Time    time.Time `json:"time"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}

// RunReport is the per-scenario envelope around the validation result.
// A scenario that hard-failed (config/injection error) carries status=error
// with FailureReason/ErrorCode set and a nil Result.
type RunReport struct {
	ScenarioName    string            `json:"scenario_name"`
	Status          ReportStatus      `json:"status"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	ErrorCode       string            `json:"error_code,omitempty"`
	DegradedMode    bool              `json:"degraded_mode"`
	DryRun          bool              `json:"dry_run"`
	StartedAt       time.Time         `json:"started_at"`
	DurationSeconds float64           `json:"duration_seconds"`
	Result          *ValidationResult `json:"result,omitempty"`
	Events          []RunEvent        `json:"events,omitempty"`
}

// GroupReport collects the reports of one scenario group, one entry per
// scenario in declaration order.
type GroupReport struct {
	Group       string      `json:"group"`
	Environment string      `json:"environment"`
	GeneratedAt time.Time   `json:"generated_at"`
	Reports     []RunReport `json:"reports"`
}

// Passed reports whether every scenario in the group was tested and met its
// SLOs.
func (g GroupReport) Passed() bool {
	for _, r := range g.Reports {
		if r.Status != ReportStatusPassed {
			return false
		}
	}
	return true
}
