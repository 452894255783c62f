package sampler

import (
	"context"
	"math/rand"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/probe"
	"github.com/chaosgate/chaosgate-go/pkg/telemetry"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// Prober abstracts the health check so tests can script outcomes.
type Prober interface {
	Probe(ctx context.Context) probe.Outcome
	URL() string
}

// Sampler probes the target on a fixed cadence for the whole run and appends
// one sample per tick into the run's buffer. It is the buffer's single
// writer; it never blocks the injector or the controller.
type Sampler struct {
	prober   Prober
	rc       *types.RunContext
	interval time.Duration
	meters   *telemetry.Meters
	rng      *rand.Rand
}

func New(prober Prober, rc *types.RunContext, interval time.Duration, meters *telemetry.Meters) *Sampler {
	return &Sampler{
		prober:   prober,
		rc:       rc,
		interval: interval,
		meters:   meters,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run samples until the context is cancelled. A slow probe never skews the
// cadence beyond its own duration: the next tick fires relative to the
// ticker, not the probe completion.
func (s *Sampler) Run(ctx context.Context) {
	log.Infof("[Status]: Sampling %v every %v", s.prober.URL(), s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

// sampleOnce takes one observation. In degraded network mode the installed
// perturbation is applied on the probe side: added latency delays the send
// and inflates the measurement, drop probability turns the probe into a
// failure without a request.
func (s *Sampler) sampleOnce(ctx context.Context) {
	phase := s.rc.CurrentPhase()
	now := time.Now()

	if p := s.rc.Perturbation(); p != nil {
		if p.DropProbability > 0 && s.rng.Float64() < p.DropProbability {
			s.record(ctx, types.ProbeSample{Timestamp: now, Phase: phase, Success: false})
			return
		}
		if p.AddedLatency > 0 {
			timer := time.NewTimer(p.AddedLatency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		outcome := s.prober.Probe(ctx)
		if outcome.Success {
			latency := *outcome.LatencyMs + float64(p.AddedLatency.Milliseconds())
			outcome.LatencyMs = &latency
		}
		s.record(ctx, types.ProbeSample{Timestamp: now, Phase: phase, LatencyMs: outcome.LatencyMs, Success: outcome.Success})
		return
	}

	outcome := s.prober.Probe(ctx)
	s.record(ctx, types.ProbeSample{Timestamp: now, Phase: phase, LatencyMs: outcome.LatencyMs, Success: outcome.Success})
}

func (s *Sampler) record(ctx context.Context, sample types.ProbeSample) {
	log.Debugf("[Status]: Sampled %s in the %s phase, success: %t", s.prober.URL(), sample.Phase, sample.Success)
	s.rc.Samples.Append(sample)
	s.meters.RecordProbe(ctx, string(sample.Phase), sample.Success, sample.LatencyMs)
}
