package middleware

import (
	"net/http"
	"time"

	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger logs every request through the global logger.
func Logger() gin.HandlerFunc {
	return RequestLogger(func() zerolog.Logger { return logger.Log })
}

// RequestLogger logs method, route, status and latency. Requests that name a
// revision carry it and the requested validation mode, so an activation can
// be traced from the access log alone. Client errors log at warn and server
// errors at error.
func RequestLogger(log func() zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		l := log()
		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = l.Error()
		case status >= http.StatusBadRequest:
			event = l.Warn()
		default:
			event = l.Info()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route", c.FullPath()).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start))
		if rev := c.Param("revision"); rev != "" {
			event = event.Str("revision", rev)
			if mode := c.Query("validate"); mode != "" {
				event = event.Str("validate", mode)
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			event = event.Str("errors", errs.String())
		}
		event.Msg("Request processed")
	}
}

// Recovery turns a handler panic into a 500 and logs it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("revision", c.Param("revision")).
					Msg("Recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
