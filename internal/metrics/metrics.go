package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poolprobe/internal/search"
)

const namespace = "poolprobe"

// Metrics instruments a search run on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	trialsTotal     prometheus.Counter
	cacheHitsTotal  prometheus.Counter
	requestFailures prometheus.Counter
	trialThroughput *prometheus.GaugeVec
	trialDuration   prometheus.Histogram
	windowLow       prometheus.Gauge
	windowHigh      prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		trialsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Number of trials executed",
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Probe levels answered from the measurement cache",
		}),
		requestFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Requests that failed inside a trial",
		}),
		trialThroughput: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trial_throughput_rps",
			Help:      "Measured throughput per connection cap",
		}, []string{"level"}),
		trialDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_duration_seconds",
			Help:      "Wall-clock duration of a trial",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		windowLow: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_low",
			Help:      "Current lower bound of the search window",
		}),
		windowHigh: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_high",
			Help:      "Current upper bound of the search window",
		}),
	}
}

func (m *Metrics) ObserveTrial(rec search.Record) {
	m.trialsTotal.Inc()
	m.requestFailures.Add(float64(rec.Fail))
	m.trialThroughput.WithLabelValues(strconv.Itoa(rec.Level)).Set(rec.Throughput)
	m.trialDuration.Observe(rec.Elapsed.Seconds())
}

func (m *Metrics) ObserveCacheHit(int) {
	m.cacheHitsTotal.Inc()
}

func (m *Metrics) ObserveWindow(w search.Window) {
	m.windowLow.Set(float64(w.Low))
	m.windowHigh.Set(float64(w.High))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned server is shut down.
// The address is bound before Serve returns, so a taken port is reported to
// the caller. A later serve failure is sent to errc, which may be nil, and errc
// is closed once the server stops.
func (m *Metrics) Serve(addr string, errc chan<- error) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := server.Serve(ln)
		if errc == nil {
			return
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return server, nil
}
