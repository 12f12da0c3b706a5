package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request. Server errors log at error
// level, client errors at warn and everything else at debug.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}
