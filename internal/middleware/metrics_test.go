package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/pkg/metrics"
)

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/roles/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/roles/12", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	require.GreaterOrEqual(t, testutil.CollectAndCount(metrics.APILatency, "authzd_api_latency_seconds"), 1)
}

func TestMetricsMiddleware_CollapsesUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())

	before := testutil.CollectAndCount(metrics.APILatency, "authzd_api_latency_seconds")
	for _, path := range []string{"/scan/a", "/scan/b", "/scan/c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.CollectAndCount(metrics.APILatency, "authzd_api_latency_seconds")
	require.LessOrEqual(t, after-before, 1)
}
