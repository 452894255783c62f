package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroupReport() types.GroupReport {
	return types.GroupReport{
		Group:       "payments",
		Environment: "staging",
		GeneratedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		Reports: []types.RunReport{
			{
				ScenarioName: "cpu-medium",
				Status:       types.ReportStatusPassed,
				StartedAt:    time.Date(2026, 3, 15, 11, 55, 0, 0, time.UTC),
				Result: &types.ValidationResult{
					ScenarioName: "cpu-medium",
					Metrics: types.AggregatedMetrics{
						MTTRSeconds:          types.Measured(4),
						ErrorRatePercent:     types.Measured(2),
						AvailabilityPercent:  types.Measured(98),
						LatencyDegradationMs: types.Measured(80),
						RecoverySeconds:      types.Measured(6),
					},
					Violations: []types.Violation{},
					Passed:     true,
				},
			},
			{
				ScenarioName: "downtime-db",
				Status:       types.ReportStatusFailed,
				StartedAt:    time.Date(2026, 3, 15, 11, 58, 0, 0, time.UTC),
				Result: &types.ValidationResult{
					ScenarioName: "downtime-db",
					Metrics: types.AggregatedMetrics{
						MTTRSeconds:          types.NotRecovered(),
						ErrorRatePercent:     types.Measured(40),
						AvailabilityPercent:  types.Measured(60),
						LatencyDegradationMs: types.InsufficientData(),
						RecoverySeconds:      types.NotRecovered(),
					},
					Violations: []types.Violation{
						{Metric: types.MetricMTTRSeconds, Expected: 10, Comparator: "<=", Actual: types.NotRecovered()},
						{Metric: types.MetricMaxErrorRatePercent, Expected: 15, Comparator: "<=", Actual: types.Measured(40)},
					},
				},
			},
			{
				ScenarioName:  "crash-api",
				Status:        types.ReportStatusError,
				FailureReason: "docker CLI is not installed and container_crash has no fallback",
				ErrorCode:     "CHAOS_INJECTION_ERROR",
				StartedAt:     time.Date(2026, 3, 15, 11, 59, 0, 0, time.UTC),
			},
		},
	}
}

func TestJSONRoundTripKeepsSentinels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleGroupReport()))

	// the sentinels survive as machine-readable states, never as 0 or null
	assert.Contains(t, buf.String(), `"state": "not_recovered"`)
	assert.Contains(t, buf.String(), `"state": "insufficient_data"`)

	var decoded types.GroupReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Reports, 3)
	assert.Equal(t, types.MetricStateNotRecovered, decoded.Reports[1].Result.Metrics.MTTRSeconds.State)
	assert.Equal(t, types.MetricStateInsufficientData, decoded.Reports[1].Result.Metrics.LatencyDegradationMs.State)
	assert.Equal(t, types.Measured(98), decoded.Reports[0].Result.Metrics.AvailabilityPercent)
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleGroupReport())

	assert.Contains(t, md, "# Resilience Report: payments")
	assert.Contains(t, md, "Environment: `staging`")
	assert.Contains(t, md, "FAILED")
	assert.Contains(t, md, "cpu-medium")
	assert.Contains(t, md, "not_recovered")
	// every violation carries a remediation hint
	assert.Contains(t, md, recommendations[types.MetricMTTRSeconds])
	assert.Contains(t, md, recommendations[types.MetricMaxErrorRatePercent])
	// hard failures explain themselves instead of showing empty metrics
	assert.Contains(t, md, "could not be tested")
	assert.Contains(t, md, "CHAOS_INJECTION_ERROR")
}

func TestGroupPassedRequiresEveryScenario(t *testing.T) {
	g := sampleGroupReport()
	assert.False(t, g.Passed())

	g.Reports = g.Reports[:1]
	assert.True(t, g.Passed())
}

func TestSavePicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "report.json")
	require.NoError(t, Save(jsonPath, sampleGroupReport()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded types.GroupReport
	require.NoError(t, json.Unmarshal(data, &decoded))

	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, Save(mdPath, sampleGroupReport()))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Resilience Report")
}
