package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SalesCreated    prometheus.Counter
	Predictions     prometheus.Counter
}

// New creates the metrics on their own registry so tests can build as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sales_http_requests_total",
			Help: "HTTP requests by method, route template and status code",
		}, []string{"method", "route", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sales_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SalesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sales_records_created_total",
			Help: "Total number of sales records created",
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "sales_predictions_total",
			Help: "Total number of forecasts computed",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncSalesCreated() {
	if m == nil {
		return
	}
	m.SalesCreated.Inc()
}

func (m *Metrics) IncPredictions() {
	if m == nil {
		return
	}
	m.Predictions.Inc()
}
