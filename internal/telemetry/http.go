package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency, by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// GinLogger logs and measures every request once it has been served.
// Websocket upgrades are logged when the connection ends.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		httpDuration.WithLabelValues(c.Request.Method, route, statusClass(status)).Observe(latency.Seconds())

		lvl := slog.LevelInfo
		if status >= 500 {
			lvl = slog.LevelError
		}
		slog.Log(c.Request.Context(), lvl, "http: request served",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", latency,
		)
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
