package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// Outcome is the result of one health probe. Any transport error, timeout or
// non-2xx response is a failure; failures carry no latency measurement.
type Outcome struct {
	Success    bool
	LatencyMs  *float64
	StatusCode int
	Reason     string
}

// HTTPProber issues one bounded-timeout GET per call against the scenario
// target. 2xx = success, anything else (including timeout/connection error)
// = failure. Probe failures are data, never errors.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber initializes a simple http client with the given timeout,
// optionally with cert check disabled
func NewHTTPProber(url string, timeout time.Duration, insecureSkipVerify bool) *HTTPProber {
	client := &http.Client{Timeout: timeout}
	if insecureSkipVerify {
		transCfg := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		client = &http.Client{Transport: transCfg, Timeout: timeout}
	}
	return &HTTPProber{url: url, client: client}
}

func (p *HTTPProber) URL() string {
	return p.url
}

// Probe sends one GET request and classifies the response
func (p *HTTPProber) Probe(ctx context.Context) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Outcome{Reason: fmt.Sprintf("unable to build probe request: %v", err)}
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{Reason: fmt.Sprintf("probe request failed: %v", err)}
	}
	defer resp.Body.Close()

	latency := float64(time.Since(start).Microseconds()) / 1000
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{StatusCode: resp.StatusCode, Reason: fmt.Sprintf("probe returned status %d", resp.StatusCode)}
	}
	return Outcome{Success: true, LatencyMs: &latency, StatusCode: resp.StatusCode}
}
