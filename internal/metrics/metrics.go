package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the bridge.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	streamsStartedTotal prometheus.Counter
	bytesProxiedTotal   prometheus.Counter
	activeSessions      prometheus.Gauge
	negotiationsTotal   *prometheus.CounterVec
}

// New creates and registers the bridge metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrbridge_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrbridge_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	streamsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrbridge_streams_started_total",
		Help: "Total number of proxied streaming sessions started",
	})
	bytesProxiedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrbridge_bytes_proxied_total",
		Help: "Total bytes piped from upstream to clients",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vrbridge_active_sessions",
		Help: "Number of streaming sessions currently registered",
	})
	negotiationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vrbridge_negotiations_total",
		Help: "Playback negotiations by chosen method",
	}, []string{"method"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		streamsStartedTotal,
		bytesProxiedTotal,
		activeSessions,
		negotiationsTotal,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		streamsStartedTotal: streamsStartedTotal,
		bytesProxiedTotal:   bytesProxiedTotal,
		activeSessions:      activeSessions,
		negotiationsTotal:   negotiationsTotal,
	}
}

func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

func (m *Metrics) IncStreamsStarted() { m.streamsStartedTotal.Inc() }

func (m *Metrics) AddBytesProxied(n int64) { m.bytesProxiedTotal.Add(float64(n)) }

func (m *Metrics) SetActiveSessions(n int) { m.activeSessions.Set(float64(n)) }

func (m *Metrics) IncNegotiation(method string) {
	m.negotiationsTotal.WithLabelValues(method).Inc()
}

// Handler returns an http.Handler serving the registry. updateGauges runs
// before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for the request middleware.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestMiddleware records request and error counts for every route.
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			m.IncRequests()
			if wrap.status >= 400 {
				m.IncErrors()
			}
		})
	}
}
