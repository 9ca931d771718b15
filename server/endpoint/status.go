package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/version"
)

var startedAt = time.Now()

func uptime() string { return time.Since(startedAt).Round(time.Second).String() }

// Liveness answers as long as the process can serve HTTP, without looking at
// any dependency.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName, "uptime": uptime()})
	}
}

// Info reports the build that is running.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "build": version.Get(), "uptime": uptime()})
	}
}
