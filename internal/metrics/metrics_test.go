package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordImport(t *testing.T) {
	before := testutil.ToFloat64(importRowsTotal.WithLabelValues("rejected"))

	RecordImport(2, 1, 3)

	assert.Equal(t, before+3, testutil.ToFloat64(importRowsTotal.WithLabelValues("rejected")))
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/offices/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/offices/:id", "404"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offices/7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/offices/:id", "404"))
	assert.Equal(t, before+1, after)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
