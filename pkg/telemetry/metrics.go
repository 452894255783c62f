package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meters are the engine's self-observation instruments: probe traffic, fault
// activity and run outcomes. Nil-safe: a nil *Meters disables recording.
type Meters struct {
	probesTotal  metric.Int64Counter
	probeLatency metric.Float64Histogram
	faultsActive metric.Int64UpDownCounter
	runsTotal    metric.Int64Counter
}

func NewMeters() (*Meters, error) {
	meter := otel.Meter(TracerName)

	probesTotal, err := meter.Int64Counter("chaosgate_probes_total",
		metric.WithDescription("Health probes issued, by phase and outcome"))
	if err != nil {
		return nil, err
	}
	probeLatency, err := meter.Float64Histogram("chaosgate_probe_latency_ms",
		metric.WithDescription("Latency of successful health probes"))
	if err != nil {
		return nil, err
	}
	faultsActive, err := meter.Int64UpDownCounter("chaosgate_faults_active",
		metric.WithDescription("Faults currently being injected"))
	if err != nil {
		return nil, err
	}
	runsTotal, err := meter.Int64Counter("chaosgate_runs_total",
		metric.WithDescription("Scenario runs, by terminal status"))
	if err != nil {
		return nil, err
	}

	return &Meters{
		probesTotal:  probesTotal,
		probeLatency: probeLatency,
		faultsActive: faultsActive,
		runsTotal:    runsTotal,
	}, nil
}

func (m *Meters) RecordProbe(ctx context.Context, phase string, success bool, latencyMs *float64) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.probesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
	if latencyMs != nil {
		m.probeLatency.Record(ctx, *latencyMs, metric.WithAttributes(attribute.String("phase", phase)))
	}
}

func (m *Meters) FaultStarted(ctx context.Context, failureType string) {
	if m == nil {
		return
	}
	m.faultsActive.Add(ctx, 1, metric.WithAttributes(attribute.String("failure_type", failureType)))
}

func (m *Meters) FaultStopped(ctx context.Context, failureType string) {
	if m == nil {
		return
	}
	m.faultsActive.Add(ctx, -1, metric.WithAttributes(attribute.String("failure_type", failureType)))
}

func (m *Meters) RunFinished(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
