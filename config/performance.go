package config

import (
	"time"

	"agencydesk-backend/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SlowRequest is the latency above which a request is logged as slow.
const SlowRequest = 200 * time.Millisecond

func PerformanceLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTP(c.Request.Method, route, status, latency)

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency.String(),
		})
		if latency > SlowRequest {
			entry.Warn("slow request")
			return
		}
		entry.Debug("request")
	}
}
