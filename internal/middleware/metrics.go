package middleware

import (
	"time"

	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency by route template.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
