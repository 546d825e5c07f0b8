package app

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/gateway"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.MCP.Enabled = false
	cfg.HTTP.Enabled = false

	log := logrus.New()
	log.SetOutput(io.Discard)

	application := New(cfg, log)
	t.Cleanup(func() {
		_ = application.Shutdown()
	})

	return application
}

func TestStartAndShutdown(t *testing.T) {
	application := newTestApp(t)

	require.NoError(t, application.Start())
	require.NoError(t, application.Shutdown())

	// Second shutdown is a no-op.
	require.NoError(t, application.Shutdown())
}

func TestStartIsIdempotent(t *testing.T) {
	application := newTestApp(t)

	require.NoError(t, application.Start())
	require.NoError(t, application.Start())
}

func TestGatewayServesCommandsThroughTheWiring(t *testing.T) {
	application := newTestApp(t)
	require.NoError(t, application.Start())

	result := application.Gateway().Handle(context.Background(), gateway.Request{Command: "echo wired"})
	assert.Equal(t, "wired\n", result.Stdout)
	assert.Equal(t, 0, result.ReturnCode)
	assert.False(t, result.Blocked)

	blocked := application.Gateway().Handle(context.Background(), gateway.Request{Command: "shutdown -h now"})
	assert.True(t, blocked.Blocked)
	assert.Equal(t, 1, blocked.ReturnCode)
}
