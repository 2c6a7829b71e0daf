package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erraggy/oasgate/oaserrors"
)

// Exchange outcomes recorded in metrics.
const (
	OutcomeCompleted   = "completed"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
	OutcomePassthrough = "passthrough"
	OutcomeUnmatched   = "unmatched"
)

// metrics holds the middleware collectors. A nil *metrics records nothing.
type metrics struct {
	exchanges          *prometheus.CounterVec   // by api, operation, outcome
	duration           *prometheus.HistogramVec // by api, operation
	validationFailures *prometheus.CounterVec   // by api, operation
	inFlight           prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oasgate",
			Subsystem: "middleware",
			Name:      "exchanges_total",
			Help:      "Total number of exchanges handled by the middleware",
		}, []string{"api", "operation", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oasgate",
			Subsystem: "middleware",
			Name:      "exchange_duration_seconds",
			Help:      "Duration of validated exchanges in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api", "operation"}),

		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oasgate",
			Subsystem: "middleware",
			Name:      "request_validation_failures_total",
			Help:      "Total number of requests rejected by parameter validation",
		}, []string{"api", "operation"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oasgate",
			Subsystem: "middleware",
			Name:      "exchanges_in_flight",
			Help:      "Number of validated exchanges currently being served",
		}),
	}

	for _, c := range []prometheus.Collector{m.exchanges, m.duration, m.validationFailures, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, &oaserrors.ConfigError{Option: "metrics", Message: "failed to register collector", Cause: err}
		}
	}
	return m, nil
}

func (m *metrics) begin() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// observe records a finished validated exchange.
func (m *metrics) observe(api, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.exchanges.WithLabelValues(api, operation, outcome).Inc()
	m.duration.WithLabelValues(api, operation).Observe(elapsed.Seconds())
	if outcome == OutcomeRejected {
		m.validationFailures.WithLabelValues(api, operation).Inc()
	}
}

// skip records an exchange the middleware did not validate.
func (m *metrics) skip(outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues("", "", outcome).Inc()
}
