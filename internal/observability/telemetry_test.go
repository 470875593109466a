package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/config"
)

func TestDisabledTelemetryIsNoop(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTelemetryWithEndpoint(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{OTLPEndpoint: "127.0.0.1:1", ServiceName: "test"})
	require.NoError(t, err, "экспортер создаётся без соединения")
	_ = shutdown(context.Background())
}
