// Package correlation tags each request with a ULID that follows a quote
// from the calculator screen through issuance and the PDF download.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// HeaderName carries the correlation ID between clients and the API.
const HeaderName = "X-Correlation-Id"

type key struct{}

// New returns a fresh correlation ID.
func New() string {
	return ulid.Make().String()
}

// FromContext returns the correlation ID on ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// FromHeader adopts a caller supplied ID when it parses as a ULID and mints a
// new one otherwise, so free text never reaches the logs.
func FromHeader(ctx context.Context, header string) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}

	id := strings.TrimSpace(header)
	if parsed, err := ulid.ParseStrict(id); err == nil {
		id = parsed.String()
	} else {
		id = New()
	}
	return WithID(ctx, id), id
}
