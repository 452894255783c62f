package report

import (
	"fmt"
	"strings"

	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/kyokomi/emoji"
)

// recommendations maps a violated SLO metric to a remediation hint. The
// table is deliberately static: the engine points at the weak property, the
// operators own the fix.
var recommendations = map[string]string{
	types.MetricMTTRSeconds:           "Recovery is too slow. Tune health checks, restart policies and failover automation so the service comes back faster.",
	types.MetricMaxErrorRatePercent:   "Too many requests fail under fault. Add retries with backoff and circuit breakers around the dependency that degrades.",
	types.MetricMinAvailability:       "Availability drops below the floor. Add redundancy (replicas behind a load balancer) so a single fault cannot take the endpoint down.",
	types.MetricMaxLatencyDegradation: "Latency balloons under resource pressure. Consider load shedding, request prioritization or autoscaling on the saturated resource.",
	types.MetricMaxRecoverySeconds:    "Latency stays elevated after the fault clears. Look at post-fault warm-up costs: connection pool rebuilds, cache refill, queue drain.",
}

// RenderMarkdown renders the group report as a human-readable summary with
// one section per scenario.
func RenderMarkdown(g types.GroupReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Resilience Report: %s\n\n", g.Group)
	fmt.Fprintf(&b, "- Environment: `%s`\n", g.Environment)
	fmt.Fprintf(&b, "- Generated: %s\n", g.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Verdict: %s\n\n", verdict(g.Passed()))

	b.WriteString("| Scenario | Status | Degraded Mode | Violations |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, r := range g.Reports {
		violations := "-"
		if r.Result != nil {
			violations = fmt.Sprintf("%d", len(r.Result.Violations))
		}
		fmt.Fprintf(&b, "| %s | %s | %v | %s |\n", r.ScenarioName, statusBadge(r.Status), r.DegradedMode, violations)
	}
	b.WriteString("\n")

	for _, r := range g.Reports {
		b.WriteString(renderScenario(r))
	}
	return b.String()
}

func renderScenario(r types.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s %s\n\n", statusBadge(r.Status), r.ScenarioName)
	if r.DryRun {
		b.WriteString("Dry run: parameters were resolved but no fault was injected.\n\n")
	}
	if r.Status == types.ReportStatusError {
		fmt.Fprintf(&b, "The scenario could not be tested: %s (`%s`)\n\n", r.FailureReason, r.ErrorCode)
		return b.String()
	}
	if r.Result == nil {
		return b.String()
	}

	m := r.Result.Metrics
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Error rate (%%) | %s |\n", m.ErrorRatePercent)
	fmt.Fprintf(&b, "| Availability (%%) | %s |\n", m.AvailabilityPercent)
	fmt.Fprintf(&b, "| P95 degradation (ms) | %s |\n", m.LatencyDegradationMs)
	fmt.Fprintf(&b, "| MTTR (s) | %s |\n", m.MTTRSeconds)
	fmt.Fprintf(&b, "| Recovery time (s) | %s |\n\n", m.RecoverySeconds)

	if len(r.Result.Violations) > 0 {
		b.WriteString("### Violations\n\n")
		b.WriteString("| SLO | Expected | Actual | Recommendation |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, v := range r.Result.Violations {
			fmt.Fprintf(&b, "| %s | %s %v | %s | %s |\n", v.Metric, v.Comparator, v.Expected, v.Actual, recommendation(v.Metric))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func recommendation(metric string) string {
	if hint, ok := recommendations[metric]; ok {
		return hint
	}
	return "No recommendation available."
}

func verdict(passed bool) string {
	if passed {
		return emoji.Sprint(":white_check_mark: PASSED")
	}
	return emoji.Sprint(":x: FAILED")
}

func statusBadge(status types.ReportStatus) string {
	switch status {
	case types.ReportStatusPassed:
		return emoji.Sprint(":white_check_mark:")
	case types.ReportStatusFailed:
		return emoji.Sprint(":x:")
	case types.ReportStatusAborted:
		return emoji.Sprint(":octagonal_sign:")
	default:
		return emoji.Sprint(":warning:")
	}
}
