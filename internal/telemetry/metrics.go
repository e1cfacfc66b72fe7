package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// FlagEvaluations counts flag evaluations by outcome reason.
	FlagEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flag_evaluations_total",
		Help: "Flag evaluations by served side and reason",
	}, []string{"served", "reason"})

	// ExperimentAssignments counts experiment assignment attempts.
	ExperimentAssignments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_assignments_total",
		Help: "Experiment assignment attempts by result",
	}, []string{"result"}) // assigned | unassigned | preview

	// SSEClients tracks currently connected config-stream clients.
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of currently connected SSE clients",
	})

	// SnapshotFlags tracks flags in the in-memory snapshot.
	SnapshotFlags = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_flags",
		Help: "Number of flags currently in the in-memory snapshot",
	})

	// SnapshotExperiments tracks experiments in the in-memory snapshot.
	SnapshotExperiments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_experiments",
		Help: "Number of experiments currently in the in-memory snapshot",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, FlagEvaluations,
		ExperimentAssignments, SSEClients, SnapshotFlags, SnapshotExperiments)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
