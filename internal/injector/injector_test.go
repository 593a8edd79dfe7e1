package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/config"
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/observability/log"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.LogLevel = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.Logger)
	require.NotNil(t, app.Bus)
	require.NotNil(t, app.Inspector)

	assert.Equal(t, log.LevelError, app.Logger.GetLevel())
	assert.Zero(t, app.Inspector.Clients())
	require.NoError(t, app.Bus.Publish(bus.NewEvent(bus.HandSpawned, "hand.left", nil, nil)))
}
