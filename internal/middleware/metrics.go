package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-billing/internal/service"
)

// unmatchedRoute labels requests that hit no registered billing route. Raw paths carry
// student and class ids and would grow the label set without bound.
const unmatchedRoute = "unmatched"

// Metrics records latency and status of every request under its route template
// (e.g. /billing/students/:id/status).
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
