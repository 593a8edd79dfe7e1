package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/input"
)

// recorder logs every callback it receives into a shared journal.
type recorder struct {
	Base
	name    string
	journal *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Enter(m *Machine) {
	r.Base.Enter(m)
	*r.journal = append(*r.journal, m.Name()+":enter:"+r.name)
}

func (r *recorder) Exit() { *r.journal = append(*r.journal, r.machine.Name()+":exit:"+r.name) }

func (r *recorder) PairedStateChanged(other State, entered bool) {
	verb := "left"
	if entered {
		verb = "entered"
	}
	*r.journal = append(*r.journal, r.machine.Name()+":paired-"+verb+":"+other.Name())
}

func (r *recorder) InputButton(b input.Button, _ input.Action) {
	*r.journal = append(*r.journal, r.machine.Name()+":button:"+b.String())
}

func (r *recorder) InputAxis(a input.Axis, _, _ float64) {
	*r.journal = append(*r.journal, r.machine.Name()+":axis:"+a.String())
}

func recordingRegistry(journal *[]string, names ...string) *Registry {
	reg := NewRegistry()
	for _, name := range names {
		reg.Register(name, func() State { return &recorder{name: name, journal: journal} })
	}
	return reg
}

type grabber struct {
	grabOK   bool
	grabbing bool
	grabs    int
	releases []bool
	held     input.Consumer
}

func (g *grabber) TryGrab() bool {
	g.grabs++
	if g.grabOK {
		g.grabbing = true
	}
	return g.grabOK
}

func (g *grabber) TryRelease(force bool) bool {
	g.releases = append(g.releases, force)
	g.grabbing = false
	return true
}

func (g *grabber) IsGrabbing() bool { return g.grabbing }

func (g *grabber) PlayerInput() (input.Consumer, bool) { return g.held, g.held != nil }

type teleporter struct {
	aims      int
	teleports int
	cancels   int
}

func (t *teleporter) UpdateAim(float64, float64) { t.aims++ }
func (t *teleporter) CancelAim()                 { t.cancels++ }
func (t *teleporter) Teleport() bool             { t.teleports++; return true }

type heldTool struct {
	flags   input.ConsumeFlags
	buttons []input.Button
	axes    []input.Axis
}

func (h *heldTool) InputAxis(a input.Axis, _, _ float64)       { h.axes = append(h.axes, a) }
func (h *heldTool) InputButton(b input.Button, _ input.Action) { h.buttons = append(h.buttons, b) }
func (h *heldTool) ConsumeInputFlags() input.ConsumeFlags      { return h.flags }

func TestRegistry(t *testing.T) {
	reg := NewDefaultRegistry()
	assert.Equal(t, []string{StateGrab, StateIdle, StateTeleportAim}, reg.Names())
	assert.True(t, reg.Has(StateIdle))

	s, err := reg.New(StateGrab)
	require.NoError(t, err)
	assert.Equal(t, StateGrab, s.Name())

	other, err := reg.New(StateGrab)
	require.NoError(t, err)
	assert.NotSame(t, s, other, "every transition gets a fresh state")

	_, err = reg.New("fly")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestChangeStateOrderWithPairedNotifications(t *testing.T) {
	var journal []string
	reg := recordingRegistry(&journal, "a", "b")
	left := New("left", reg)
	right := New("right", reg)
	Pair(left, right)

	require.NoError(t, left.ChangeState("a", false))
	require.NoError(t, right.ChangeState("a", false))
	journal = nil

	require.NoError(t, left.ChangeState("b", true))
	assert.Equal(t, []string{
		"left:exit:a",
		"right:paired-left:a",
		"left:enter:b",
		"right:paired-entered:b",
	}, journal)
	assert.Equal(t, "b", left.Current().Name())
	assert.Equal(t, "a", left.PairedState().Name())
}

func TestChangeStateWithoutNotify(t *testing.T) {
	var journal []string
	reg := recordingRegistry(&journal, "a", "b")
	left := New("left", reg)
	right := New("right", reg)
	Pair(left, right)
	require.NoError(t, right.ChangeState("a", false))
	journal = nil

	require.NoError(t, left.ChangeState("b", false))
	assert.Equal(t, []string{"left:enter:b"}, journal)
}

func TestChangeStateUnknownInstallsInertState(t *testing.T) {
	m := New("left", NewDefaultRegistry())
	require.NoError(t, m.ChangeToDefault(false))

	err := m.ChangeState("fly", true)
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Equal(t, "", m.Current().Name())

	// inert state swallows input
	g := &grabber{grabOK: true}
	m.SetGrabber(g)
	m.InputButton(input.ButtonGrip, input.Pressed)
	assert.Zero(t, g.grabs)
}

func TestChangeStateWithoutRegistry(t *testing.T) {
	m := New("left", nil)
	assert.ErrorIs(t, m.ChangeToDefault(false), ErrNoRegistry)
}

func TestUnpair(t *testing.T) {
	a := New("left", nil)
	b := New("right", nil)
	Pair(a, b)
	assert.Same(t, b, a.Paired())
	a.Unpair()
	assert.Nil(t, a.Paired())
	assert.Nil(t, b.Paired())
	assert.Nil(t, a.PairedState())

	Pair(a, a)
	assert.Nil(t, a.Paired())
}

func TestStateChangePublished(t *testing.T) {
	b := bus.New()
	var got []bus.StatePayload
	_, err := b.Subscribe(bus.StateChanged, func(e bus.Event) error {
		got = append(got, e.Data().(bus.StatePayload))
		return nil
	})
	require.NoError(t, err)

	m := New("right", NewDefaultRegistry(), WithBus(b))
	require.NoError(t, m.ChangeToDefault(false))
	require.Len(t, got, 1)
	assert.Equal(t, bus.StatePayload{Hand: "right", From: "", To: StateIdle}, got[0])
}

func TestInputRoutingRespectsConsumeFlags(t *testing.T) {
	var journal []string
	tool := &heldTool{flags: input.ConsumeFlags{Trigger: true, TriggerButton: true}}
	m := New("left", recordingRegistry(&journal, "a"), WithGrabber(&grabber{held: tool}))
	require.NoError(t, m.ChangeState("a", false))
	journal = nil

	m.InputAxis(input.AxisTrigger, 1, 0)
	m.InputAxis(input.AxisThumbstick, 0.2, 0.3)
	m.InputButton(input.ButtonTrigger, input.Pressed)
	m.InputButton(input.ButtonGrip, input.Pressed)

	assert.Equal(t, []input.Axis{input.AxisTrigger, input.AxisThumbstick}, tool.axes)
	assert.Equal(t, []input.Button{input.ButtonTrigger, input.ButtonGrip}, tool.buttons)
	assert.Equal(t, []string{"left:axis:thumbstick", "left:button:grip"}, journal)

	x, y := m.Axis(input.AxisThumbstick)
	assert.Equal(t, 0.2, x)
	assert.Equal(t, 0.3, y)
}

func TestIdleGrabTransitions(t *testing.T) {
	g := &grabber{}
	m := New("left", NewDefaultRegistry(), WithGrabber(g))
	require.NoError(t, m.ChangeToDefault(false))

	m.InputButton(input.ButtonGrip, input.Pressed)
	assert.Equal(t, 1, g.grabs)
	assert.Equal(t, StateIdle, m.Current().Name(), "nothing to grab")

	g.grabOK = true
	m.InputButton(input.ButtonTrigger, input.Pressed)
	assert.Equal(t, 1, g.grabs)

	m.InputButton(input.ButtonGrip, input.Pressed)
	assert.Equal(t, StateGrab, m.Current().Name())

	m.Tick(0.01)
	assert.Equal(t, StateGrab, m.Current().Name())

	m.InputButton(input.ButtonGrip, input.ReleasedPress)
	assert.Equal(t, []bool{false}, g.releases)
	m.Tick(0.01)
	assert.Equal(t, StateIdle, m.Current().Name())
}

func TestGrabSecondPress(t *testing.T) {
	g := &grabber{grabOK: true}
	m := New("left", NewDefaultRegistry(), WithGrabber(g))
	require.NoError(t, m.ChangeToDefault(false))
	m.InputButton(input.ButtonGrip, input.Pressed)
	require.Equal(t, StateGrab, m.Current().Name())

	m.InputButton(input.ButtonGrip, input.Pressed)
	assert.Equal(t, 2, g.grabs)
}

func TestTeleportAimFlow(t *testing.T) {
	tp := &teleporter{}
	m := New("right", NewDefaultRegistry(), WithTeleporter(tp), WithDeadzone(0.4))
	require.NoError(t, m.ChangeToDefault(false))

	m.InputAxis(input.AxisThumbstick, 0.1, 0.1)
	assert.Equal(t, StateIdle, m.Current().Name())

	m.InputAxis(input.AxisThumbstick, 0, 0.9)
	assert.Equal(t, StateTeleportAim, m.Current().Name())
	assert.Equal(t, 1, tp.aims)

	m.InputAxis(input.AxisThumbstick, 0.2, 0.8)
	assert.Equal(t, 2, tp.aims)

	m.InputAxis(input.AxisThumbstick, 0, 0)
	assert.Equal(t, 1, tp.teleports)
	assert.Equal(t, StateIdle, m.Current().Name())
}

func TestTeleportAimCancel(t *testing.T) {
	tp := &teleporter{}
	m := New("right", NewDefaultRegistry(), WithTeleporter(tp))
	require.NoError(t, m.ChangeToDefault(false))
	m.InputAxis(input.AxisThumbstick, 1, 0)
	require.Equal(t, StateTeleportAim, m.Current().Name())

	m.InputButton(input.ButtonSecondary, input.Pressed)
	assert.Equal(t, 1, tp.cancels)
	assert.Zero(t, tp.teleports)
	assert.Equal(t, StateIdle, m.Current().Name())
}

func TestIdleWithoutTeleporterIgnoresStick(t *testing.T) {
	m := New("left", NewDefaultRegistry())
	require.NoError(t, m.ChangeToDefault(false))
	m.InputAxis(input.AxisThumbstick, 1, 0)
	assert.Equal(t, StateIdle, m.Current().Name())
}
