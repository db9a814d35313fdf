package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/warranty/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{AppVersion: "1.2.3", Environment: "production"})

	assert.Equal(t, "warranty", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := LoadConfig(config.Config{AppName: "warranty-api", Environment: "production"})
	assert.Equal(t, "warranty-api", cfg.ServiceName)
	assert.True(t, cfg.Debug())
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
}

func TestLoadConfigLogSampling(t *testing.T) {
	cfg := LoadConfig(config.Config{})
	assert.Equal(t, 100, cfg.LogSampleInitial)
	assert.Equal(t, time.Second, cfg.LogSampleWindow)

	t.Setenv("LOG_SAMPLING_THEREAFTER", "10")
	t.Setenv("LOG_SAMPLING_WINDOW", "5s")
	cfg = LoadConfig(config.Config{})
	assert.Equal(t, 10, cfg.LogSampleAfter)
	assert.Equal(t, 5*time.Second, cfg.LogSampleWindow)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: " Local "}.Debug())
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.False(t, Config{LogLevel: "info", Environment: "staging"}.Debug())
}
