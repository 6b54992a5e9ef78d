package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tumainiaid/reporting-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the
// reporting workflow.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	submissionsCreated *prometheus.CounterVec
	statusTransitions  *prometheus.CounterVec
	complianceRate     *prometheus.GaugeVec
	notifications      *prometheus.CounterVec
	rateLimitDenied    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_created_total",
		Help: "Update submissions created, by report type",
	}, []string{"report_type"})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submission_status_transitions_total",
		Help: "Successful status transitions, by target status",
	}, []string{"to_status"})

	complianceRate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_rate_percent",
		Help: "Latest computed compliance rate, by report type",
	}, []string{"report_type"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_notifications_total",
		Help: "Compliance notifications attempted, by tier and outcome",
	}, []string{"tier", "outcome"})

	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_denied_total",
		Help: "Requests denied by the rate limiter, by namespace",
	}, []string{"namespace"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissionsCreated,
		statusTransitions, complianceRate, notifications, rateLimitDenied, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		submissionsCreated: submissionsCreated,
		statusTransitions:  statusTransitions,
		complianceRate:     complianceRate,
		notifications:      notifications,
		rateLimitDenied:    rateLimitDenied,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveSubmissionCreated counts a new submission.
func (m *MetricsService) ObserveSubmissionCreated(reportType models.ReportType) {
	if m == nil {
		return
	}
	m.submissionsCreated.WithLabelValues(string(reportType)).Inc()
}

// ObserveStatusTransition counts a successful transition.
func (m *MetricsService) ObserveStatusTransition(to models.SubmissionStatus) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(to)).Inc()
}

// ObserveComplianceRate records the latest detector output.
func (m *MetricsService) ObserveComplianceRate(reportType models.ReportType, rate int) {
	if m == nil {
		return
	}
	m.complianceRate.WithLabelValues(string(reportType)).Set(float64(rate))
}

// ObserveNotification counts a notification attempt.
func (m *MetricsService) ObserveNotification(tier models.NotificationTier, delivered bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !delivered {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(string(tier), outcome).Inc()
}

// ObserveRateLimitDenied counts a limiter rejection.
func (m *MetricsService) ObserveRateLimitDenied(namespace string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(namespace).Inc()
}
