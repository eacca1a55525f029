package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f2dhis2/internal/config"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.Telemetry{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitWithEndpoint(t *testing.T) {
	// The exporter connects lazily, so no collector is needed to build it.
	shutdown, err := Init(context.Background(), config.Telemetry{OTLPEndpoint: "127.0.0.1:4318", Insecure: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing against a cancelled context may fail; it must not hang.
	_ = shutdown(ctx)
}
