package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fintrack"

// registerMetrics exposes the middleware counters on a private registry so
// several servers can coexist in one process.
func (s *Server) registerMetrics() {
	reg := prometheus.NewRegistry()

	s.ops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Transactions accepted by the API, by operation.",
	}, []string{"operation"})

	reg.MustRegister(
		collectors.NewGoCollector(),
		s.ops,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served.",
		}, func() float64 { return float64(s.tracer.GetMetrics().TotalRequests) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "client_errors_total",
			Help: "HTTP responses with a 4xx status.",
		}, func() float64 { return float64(s.tracer.GetMetrics().ClientErrors) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "server_errors_total",
			Help: "HTTP responses with a 5xx status.",
		}, func() float64 { return float64(s.tracer.GetMetrics().ServerErrors) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_avg_seconds",
			Help: "Mean request latency since start.",
		}, func() float64 { return s.tracer.GetMetrics().AverageResponseTime.Seconds() }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rate_limit", Name: "rejections_total",
			Help: "Requests rejected by the write rate limiter.",
		}, func() float64 { return float64(s.limiter.GetMetrics().TotalHits) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "rate_limit", Name: "clients",
			Help: "Clients currently tracked by the rate limiter.",
		}, func() float64 { return float64(s.limiter.GetMetrics().ClientCount) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "security", Name: "suspicious_requests_total",
			Help: "Requests matching a probe pattern.",
		}, func() float64 { return float64(s.detector.GetMetrics().SuspiciousRequests) }),
	)

	s.registry = reg
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
