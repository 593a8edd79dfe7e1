package sim

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/config"
	"github.com/zeusync/vrhand/internal/core/controller"
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/input"
)

func TestDefaultScriptRunsToCompletion(t *testing.T) {
	s, err := New(config.Default())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 270, s.Ticks())
	assert.Zero(t, s.script.Len())

	counts := s.Counts()
	assert.Equal(t, 2, counts[bus.HandSpawned])
	assert.Equal(t, 2, counts[bus.GrabStarted])
	assert.Equal(t, 2, counts[bus.GrabAttached])
	assert.Equal(t, 2, counts[bus.GrabReleased])
	assert.Equal(t, 2, counts[bus.HandTeleported])

	assert.False(t, s.Cube().Held)
	assert.False(t, s.Tool().Held)
	assert.InDelta(t, DefaultTeleportReach, s.Pawn().Root().Translation.X(), 1e-9)
	assert.Equal(t, controller.StateIdle, s.Hand(Left).Machine().Current().Name())
	assert.Equal(t, controller.StateIdle, s.Hand(Right).Machine().Current().Name())
}

func TestStickyToolNeedsSecondPress(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Ticks = 0
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx := context.Background()
	stepUntil := func(at time.Duration) {
		for s.Now() < at {
			require.NoError(t, s.Step(ctx))
		}
	}

	stepUntil(2100 * time.Millisecond)
	assert.True(t, s.Tool().Held)
	assert.True(t, s.Hand(Right).Negotiator().IsGrabbing())
	assert.Equal(t, controller.StateGrab, s.Hand(Right).Machine().Current().Name())

	stepUntil(2300 * time.Millisecond)
	assert.False(t, s.Tool().Held)
	assert.Equal(t, controller.StateIdle, s.Hand(Right).Machine().Current().Name())
}

func TestHandsWaitForTracking(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Ticks = 45
	s, err := New(cfg, WithScript(nil))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Run(context.Background()))
	assert.Nil(t, s.Hand(Left).Hand())
	assert.True(t, s.Hand(Left).WaitingForTracking())
	assert.Zero(t, s.Counts()[bus.HandSpawned])
}

func TestScriptOrdersCues(t *testing.T) {
	var fired []string
	note := func(name string) func(*Sim) {
		return func(*Sim) { fired = append(fired, name) }
	}
	tl := newTimeline([]Cue{
		{At: 30 * time.Millisecond, Name: "c", Do: note("c")},
		{At: 10 * time.Millisecond, Name: "a", Do: note("a")},
		{At: 10 * time.Millisecond, Name: "b", Do: note("b")},
	})

	for _, c := range tl.due(20 * time.Millisecond) {
		c.Do(nil)
	}
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, tl.Len())
	assert.Empty(t, tl.due(29*time.Millisecond))
	assert.Len(t, tl.due(time.Second), 1)
}

func TestTeleporterNeedsAim(t *testing.T) {
	s, err := New(config.Default(), WithScript([]Cue{
		{At: 100 * time.Millisecond, Name: "aim", Do: Stick(Right, input.AxisThumbstick, 1, 0)},
		{At: 200 * time.Millisecond, Name: "cancel", Do: Press(Right, input.ButtonSecondary, input.Pressed)},
	}))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	assert.False(t, s.Teleporter().Teleport())

	ctx := context.Background()
	for s.Now() < 150*time.Millisecond {
		require.NoError(t, s.Step(ctx))
	}
	assert.True(t, s.Teleporter().Aiming())
	assert.InDelta(t, -DefaultTeleportReach, s.Teleporter().Target().Y(), 1e-9)
	assert.Equal(t, controller.StateTeleportAim, s.Hand(Right).Machine().Current().Name())

	for s.Now() < 250*time.Millisecond {
		require.NoError(t, s.Step(ctx))
	}
	assert.False(t, s.Teleporter().Aiming())
	assert.Equal(t, mgl64.Vec3{}, s.Pawn().Root().Translation)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.TickRate = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Ticks = 0
	s, err := New(cfg, WithRealtime(true))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	assert.Positive(t, s.Ticks())
}
