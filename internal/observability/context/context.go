// Package context carries request-scoped identifiers used by logging and
// tracing.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type clientIPKey struct{}
type jobReferenceKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(clientIPKey{}).(string)
	return value
}

// WithJobReference tags ctx with the marketplace job a quote belongs to.
func WithJobReference(ctx context.Context, ref string) context.Context {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ctx
	}
	return context.WithValue(ctx, jobReferenceKey{}, ref)
}

func JobReferenceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(jobReferenceKey{}).(string)
	return value
}
