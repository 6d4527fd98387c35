package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_evaluations_total",
			Help: "Question evaluations by question key and outcome",
		},
		[]string{"question", "outcome"},
	)

	caseWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_case_writes_total",
			Help: "Patient case writes by operation and result",
		},
		[]string{"operation", "result"},
	)

	advisoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_advisories_total",
			Help: "Advisory results recorded by type",
		},
		[]string{"type"},
	)

	summaryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_summary_requests_total",
			Help: "Summary requests by report, type and cache outcome",
		},
		[]string{"report", "type", "cache"},
	)

	publishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screening_publish_failures_total",
			Help: "Question result change notifications that failed to publish",
		},
	)
)

// Evaluation outcomes.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeReferral   = "referral"
)

// Cache outcomes for summary requests.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one finished request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// InFlight tracks a request in progress; call the returned func when done.
func InFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// --- Business metric helpers ---

func RecordEvaluation(questionKey, outcome string) {
	evaluationsTotal.WithLabelValues(questionKey, outcome).Inc()
}

func RecordCaseWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	caseWritesTotal.WithLabelValues(operation, result).Inc()
}

func RecordAdvisory(resultType string) {
	advisoriesTotal.WithLabelValues(resultType).Inc()
}

func RecordSummaryRequest(report, resultType, cache string) {
	summaryRequestsTotal.WithLabelValues(report, resultType, cache).Inc()
}

func RecordPublishFailure() {
	publishFailuresTotal.Inc()
}
