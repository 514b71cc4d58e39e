package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	importRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_import_rows_total",
			Help: "Bulk import rows by outcome",
		},
		[]string{"outcome"},
	)

	importRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_import_runs_total",
			Help: "Bulk import invocations by result",
		},
		[]string{"result"},
	)

	letterTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_transitions_total",
			Help: "Letter workflow transitions by resulting status",
		},
		[]string{"status"},
	)

	activityDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "letter_activity_write_failures_total",
			Help: "Letter activity entries that could not be persisted",
		},
	)
)

// RecordImport counts one finished import and its row outcomes.
func RecordImport(created, updated, rejected int) {
	importRunsTotal.WithLabelValues("completed").Inc()
	importRowsTotal.WithLabelValues("created").Add(float64(created))
	importRowsTotal.WithLabelValues("updated").Add(float64(updated))
	importRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordImportFailure counts an import aborted by a structural error.
func RecordImportFailure() {
	importRunsTotal.WithLabelValues("invalid_format").Inc()
}

// RecordLetterTransition counts a letter reaching status.
func RecordLetterTransition(status string) {
	letterTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordActivityWriteFailure counts activity entries lost to storage errors.
func RecordActivityWriteFailure(n int) {
	activityDroppedTotal.Add(float64(n))
}

// Middleware records request count and latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			httpRequestsTotal.WithLabelValues(method, route, status).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
