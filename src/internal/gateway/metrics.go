package gateway

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/routing"
)

const metricsNamespace = "ws02_gateway"

// unknownCode replaces the API code label of NOT_FOUND requests.
const unknownCode = "unknown"

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec   // api_code, outcome
	duration     *prometheus.HistogramVec // api_code
	hostAttempts *prometheus.CounterVec   // host, result
	inFlight     prometheus.Gauge
}

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates the dispatcher metrics and registers them with reg.
// A nil reg disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Dispatched API requests by final outcome",
		}, []string{"api_code", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time from receipt to completion or failure",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"api_code"}),

		hostAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "host_attempts_total",
			Help:      "Execution attempts per backend host",
		}, []string{"host", "result"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently in the pipeline",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.hostAttempts, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var attemptResults = map[errors.ExecutionKind]string{
	errors.KindTimeout:           "timeout",
	errors.KindRemoteFailure:     "remote_failure",
	errors.KindConnectionFailure: "connection_failure",
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finish(code string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()

	outcome := "completed"
	if err != nil {
		outcome = strings.ToLower(string(errors.CodeOf(err)))
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			code = unknownCode
		}
	}
	m.requests.WithLabelValues(code, outcome).Inc()
	m.duration.WithLabelValues(code).Observe(elapsed.Seconds())
}

func (m *Metrics) attempts(attempts []routing.Attempt) {
	if m == nil {
		return
	}
	for _, a := range attempts {
		result := "ok"
		if a.Err != nil {
			result = "failed"
			var execErr *errors.ExecutionError
			if stderrors.As(a.Err, &execErr) {
				result = attemptResults[execErr.Kind]
			}
		}
		m.hostAttempts.WithLabelValues(a.Host.Code, result).Inc()
	}
}
