package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tier_id", "platinum-25yr"),
		attribute.String("job_reference", "JOB-1"),
		attribute.String("policy", "threshold"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "tier_id" && attrs[1].Key != "tier_id" {
		t.Fatalf("expected tier_id to be retained")
	}
	if attrs[0].Key != "policy" && attrs[1].Key != "policy" {
		t.Fatalf("expected policy to be retained")
	}
}

func TestWarrantyCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "warranty-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuotes(ctx, "quotes", 6)
	m.RecordQuotes(ctx, "tier", 1)
	m.RecordRecommendation(ctx, "always_longest", "platinum-25yr", 2499)
	m.RecordQuoteIssued(ctx, "platinum-25yr", OutcomeCreated)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[md.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(7), sums["warranty_quotes_computed_total"])
	assert.Equal(t, int64(1), sums["warranty_recommendations_total"])
	assert.Equal(t, int64(1), sums["warranty_quotes_issued_total"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordQuotes(context.Background(), "quotes", 6)
		m.RecordInvalidRequest(context.Background(), "invalid_job_total")
	})
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/warranty/tiers", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/warranty/tiers", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/warranty/tiers", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))

	_, err = NewHTTPMetrics(reg)
	assert.Error(t, err)
}
