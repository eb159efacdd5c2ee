package monitor

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestLevel picks the log level for a status server response. Routine
// reads stay at debug so a polling client does not flood syslog.
func requestLevel(status int) logrus.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logrus.ErrorLevel
	case status >= http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.DebugLevel
	}
}

// requestLogger logs every status request through logger.
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": time.Since(start).String(),
		})

		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			entry.Error(errs.String())
			return
		}

		switch requestLevel(status) {
		case logrus.ErrorLevel:
			entry.Error("status request failed")
		case logrus.WarnLevel:
			entry.Warn("status request rejected")
		default:
			entry.Debug("status request served")
		}
	}
}
