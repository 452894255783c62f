package telemetry

import (
	"net"
	"net/http"

	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

const maxMetricsConnections = 16

// ServeMetrics exposes the prometheus registry on addr. Blocks; run it in a
// goroutine. An empty addr disables the listener.
func ServeMetrics(addr string) error {
	if addr == "" {
		return nil
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	// scrapers only; cap concurrent connections
	listener = netutil.LimitListener(listener, maxMetricsConnections)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))

	log.Infof("[Info]: Serving engine metrics on %s/metrics", addr)
	return http.Serve(listener, mux)
}
