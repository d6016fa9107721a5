package handler

import (
	"time"

	"github.com/bongbari/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one structured line per request.
func (a *API) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := requestFields(c)
		fields["status"] = c.Writer.Status()
		fields["duration_ms"] = time.Since(start).Milliseconds()
		entry := a.log.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Errorf("request completed")
		case c.Writer.Status() >= 400:
			entry.Warnf("request completed")
		default:
			entry.Infof("request completed")
		}
	}
}

func requestFields(c *gin.Context) logger.Fields {
	fields := logger.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}
	if fields["path"] == "" {
		fields["path"] = c.Request.URL.Path
	}
	if id := deviceID(c); id != "" {
		fields["device"] = id
	}
	if actor := adminActor(c); actor != "" {
		fields["actor"] = actor
	}
	return fields
}
