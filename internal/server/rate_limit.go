package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/warranty/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonClientRate  = "client-rate"
	rateLimitReasonJobInFlight = "job-in-flight"
)

// QuoteIssueRateLimit throttles quote issuance per client IP.
func (s *Server) QuoteIssueRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.issueLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.issueLimiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("quote issue rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			s.denyRateLimit(c, endpoint, rateLimitReasonClientRate, res.RetryAfter)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

// lockJobReference holds the per-job issuance lock. When ok is false the
// request has already been aborted.
func (s *Server) lockJobReference(c *gin.Context, jobReference string) (release func(), ok bool) {
	noop := func() {}
	if !s.issueLimiter.Enabled() || jobReference == "" {
		return noop, true
	}

	ctx := c.Request.Context()
	lease, acquired, err := s.issueLimiter.LockJob(ctx, jobReference)
	if err != nil {
		logger.FromContext(ctx).Warn("quote issue lock failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return noop, false
	}
	if !acquired {
		s.denyRateLimit(c, normalizeRateLimitEndpoint(c), rateLimitReasonJobInFlight, time.Second)
		return noop, false
	}

	return func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("quote issue unlock failed", zap.Error(err))
		}
	}, true
}

func (s *Server) denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("quote issue rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
