package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestObserver receives one call per finished request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// AuditLogger logs every request with its correlation ID and reports it to observer when
// one is given. The matched route template is logged instead of the raw path so MRNs stay
// out of the access log.
func AuditLogger(logger *logrus.Logger, observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if observer != nil {
			observer.ObserveRequest(c.Request.Method, route, status, latency)
		}

		entry := logger.WithFields(logrus.Fields{
			"correlation_id": GetCorrelationID(c),
			"method":         c.Request.Method,
			"route":          route,
			"status":         status,
			"latency":        latency.String(),
			"client_ip":      c.ClientIP(),
			"response_size":  c.Writer.Size(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	}
}

// Recovery turns a handler panic into a 500 and logs it.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"correlation_id": GetCorrelationID(c),
			"panic":          recovered,
		}).Error("Recovered from handler panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":       "INTERNAL_SERVER_ERROR",
			"message":    "internal server error",
			"request_id": GetCorrelationID(c),
		})
	})
}
