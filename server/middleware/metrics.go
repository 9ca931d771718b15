package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/observability"
)

// RequestMetrics records every routed request against its route pattern.
// Unmatched paths are grouped under "unmatched".
func RequestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
