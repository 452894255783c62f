package environment

import (
	"os"
	"strconv"
	"time"
)

// Settings holds the engine tunables that are not part of a scenario
// definition: sampling cadence, phase window widths, recovery detection
// knobs, and the observability endpoints.
type Settings struct {
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	BaselineWindow time.Duration
	RecoveryWindow time.Duration
	GracePeriod    time.Duration

	// RecoveryStreak is K, the consecutive-success run length that marks
	// recovery for MTTR.
	RecoveryStreak int

	// LatencyTolerancePercent is the band around the baseline p95 within
	// which latency counts as recovered.
	LatencyTolerancePercent float64

	// AbortWindowSamples is the rolling window width for abort evaluation.
	AbortWindowSamples int

	NetworkInterface   string
	InsecureSkipVerify bool
	MetricsAddr        string
	OTelEndpoint       string
}

//GetENV fetches all the engine tunables from the environment
func GetENV() Settings {
	return Settings{
		ProbeInterval:           toDuration(Getenv("PROBE_INTERVAL", "1")),
		ProbeTimeout:            toDuration(Getenv("PROBE_TIMEOUT", "2")),
		BaselineWindow:          toDuration(Getenv("BASELINE_WINDOW", "30")),
		RecoveryWindow:          toDuration(Getenv("RECOVERY_WINDOW", "60")),
		GracePeriod:             toDuration(Getenv("GRACE_PERIOD", "30")),
		RecoveryStreak:          toInt(Getenv("RECOVERY_STREAK", "3")),
		LatencyTolerancePercent: toFloat(Getenv("LATENCY_TOLERANCE_PERCENT", "10")),
		AbortWindowSamples:      toInt(Getenv("ABORT_WINDOW_SAMPLES", "5")),
		NetworkInterface:        Getenv("NETWORK_INTERFACE", "eth0"),
		InsecureSkipVerify:      Getenv("INSECURE_SKIP_VERIFY", "false") == "true",
		MetricsAddr:             Getenv("METRICS_ADDR", ""),
		OTelEndpoint:            Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Getenv fetch the env and set the default value, if env contains empty value
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}

func toInt(value string) int {
	n, _ := strconv.Atoi(value)
	return n
}

func toFloat(value string) float64 {
	f, _ := strconv.ParseFloat(value, 64)
	return f
}

func toDuration(seconds string) time.Duration {
	return time.Duration(toInt(seconds)) * time.Second
}
