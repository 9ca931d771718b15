// Package endpoint holds the operational endpoints every deployment exposes.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/component"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// Health aggregates component health. Any unhealthy component turns the
// response into a 503. Degraded components keep it at 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := component.StatusHealthy
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
			for _, h := range components {
				switch h.Status {
				case component.StatusUnhealthy:
					status = component.StatusUnhealthy
				case component.StatusDegraded:
					if status == component.StatusHealthy {
						status = component.StatusDegraded
					}
				}
			}
		}

		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    serviceName,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}
