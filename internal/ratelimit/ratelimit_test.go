package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/warranty/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIssueLimiter_Disabled(t *testing.T) {
	l, err := NewQuoteIssueLimiter(config.Config{})
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	ctx := context.Background()
	res, err := l.AllowClient(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	lease, ok, err := l.LockJob(ctx, "JOB-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, lease)
	assert.NoError(t, lease.Release(ctx))
	assert.NoError(t, l.Close())
}

func TestQuoteIssueLimiter_NilIsDisabled(t *testing.T) {
	var l *QuoteIssueLimiter
	assert.False(t, l.Enabled())

	res, err := l.AllowClient(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.NoError(t, l.Close())
}

func TestNewQuoteIssueLimiter_Validation(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true}}
	_, err := NewQuoteIssueLimiter(cfg)
	assert.Error(t, err)

	cfg.RateLimit.RedisAddr = "localhost:6379"
	_, err = NewQuoteIssueLimiter(cfg)
	assert.Error(t, err)

	cfg.RateLimit.QuoteIssueRate = 2
	cfg.RateLimit.QuoteIssueBurst = 4
	l, err := NewQuoteIssueLimiter(cfg)
	require.NoError(t, err)
	assert.True(t, l.Enabled())
	assert.Equal(t, defaultIssueLockTTL, l.lockTTL)
	assert.NoError(t, l.Close())
}

func TestTokenBucket_Unconfigured(t *testing.T) {
	assert.Nil(t, NewTokenBucket(nil))
	assert.Nil(t, NewLocker(nil))

	var b *TokenBucket
	_, err := b.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)

	var l *Locker
	_, _, err = l.Acquire(context.Background(), "k", time.Second)
	assert.Error(t, err)
}

func TestParseTake(t *testing.T) {
	res, err := parseTake([]interface{}{int64(1), "2.75", int64(0)}, 4)
	require.NoError(t, err)
	assert.Equal(t, &Result{Allowed: true, Limit: 4, Remaining: 2}, res)

	res, err = parseTake([]interface{}{int64(0), "0.5", int64(250)}, 4)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)

	_, err = parseTake([]interface{}{int64(1), "x", int64(0)}, 4)
	assert.Error(t, err)
	_, err = parseTake([]interface{}{int64(1)}, 4)
	assert.Error(t, err)
	_, err = parseTake([]interface{}{"1", "1", int64(0)}, 4)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, 3*time.Second, bucketTTL(2, 3))
}
