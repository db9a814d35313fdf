package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/warranty/internal/observability/context"
	"github.com/smallbiznis/warranty/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to the (type, code) pair logged
	// with the request.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware seeds the request context with request and correlation IDs
// and writes one http_request entry per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClientIP(ctx, c.ClientIP())
		ctx, cid := correlation.FromHeader(ctx, c.GetHeader(correlation.HeaderName))
		c.Header(correlation.HeaderName, cid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()

		var errType, errCode string
		if last := c.Errors.Last(); last != nil && cfg.ErrorClassifier != nil {
			errType, errCode = cfg.ErrorClassifier(last.Err)
		}

		entry := FromContext(c.Request.Context()).Check(requestLevel(route, status, errType), "http_request")
		if entry == nil {
			return
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if tierID := c.GetString("tier_id"); tierID != "" {
			fields = append(fields, zap.String("tier_id", tierID))
		}
		if errType != "" {
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}
		entry.Write(fields...)
	}
}

// requestLevel keeps probes and routine calculator typos out of info logs.
func requestLevel(route string, status int, errType string) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case errType == "validation_error" && isQuoteRead(route):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func isQuoteRead(route string) bool {
	return strings.HasPrefix(route, "/api/warranty/quotes") ||
		route == "/api/warranty/recommendation" ||
		route == "/api/warranty/format"
}
