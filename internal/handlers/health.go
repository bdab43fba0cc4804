package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/monitoring"
	"github.com/charlesng35/authzd/pkg/response"
)

// Health evaluates the readiness probes. A down probe turns the response into
// a 503; degraded probes are reported but keep the 200. The report is returned
// either way.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))
		status := http.StatusOK
		if report.Status == monitoring.StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response.Response{Success: status == http.StatusOK, Data: report})
	}
}
