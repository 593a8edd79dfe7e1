package rig

import (
	"fmt"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/skeleton"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/weld"
	"github.com/zeusync/vrhand/internal/core/world"
)

// HandSettings describes one physical hand.
type HandSettings struct {
	Name                     string
	Mass                     float64
	RootBone                 string
	PalmSocket               string
	ActiveProfile            string
	InactiveProfile          string
	SleepThresholdMultiplier float64
	AutoSleepSensitivity     bool
}

// DefaultHandSettings returns the stock right hand setup.
func DefaultHandSettings() HandSettings {
	return HandSettings{
		Name:                 "hand",
		Mass:                 10,
		RootBone:             "hand_r",
		PalmSocket:           "palm_socket",
		ActiveProfile:        physics.ProfilePhysicsActor,
		InactiveProfile:      physics.ProfileNoCollision,
		AutoSleepSensitivity: true,
	}
}

// Hand is the physically simulated hand actor: a skeletal body registered in
// the world whose collision shapes follow the animated bones.
type Hand struct {
	settings HandSettings
	world    *world.World
	handle   world.Handle
	body     *physics.SkeletalBody
	driver   *weld.Driver
	offset   spatial.Transform
	log      log.Log
}

type HandOption func(*Hand)

func WithHandLogger(l log.Log) HandOption {
	return func(h *Hand) { h.log = log.OrNop(l) }
}

// NewHand builds the hand body for mesh from asset at pose. The hand starts
// kinematic with the active collision profile and its bone driver set up.
func NewHand(w *world.World, mesh *skeleton.Mesh, asset *physics.Asset, pose spatial.Transform, settings HandSettings, opts ...HandOption) (*Hand, error) {
	h := &Hand{
		settings: settings,
		world:    w,
		offset:   spatial.Identity(),
		log:      log.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	mesh.SetComponentToWorld(pose)
	body, err := physics.NewSkeletalBody(w.Scene(), mesh, asset, physics.SkeletalDesc{
		Name:     settings.Name,
		Mass:     settings.Mass,
		Simulate: false,
		Profile:  settings.ActiveProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("hand %s: %w", settings.Name, err)
	}
	h.body = body
	h.handle = w.Spawn(world.Spec{Name: settings.Name, Body: body.Actor(), Behavior: h})

	h.driver = weld.New(
		weld.WithAutoSleepSensitivity(settings.AutoSleepSensitivity),
		weld.WithSleepThresholdMultiplier(settings.SleepThresholdMultiplier),
		weld.WithLogger(h.log),
	)
	h.SetupBoneDriver(body)
	return h, nil
}

func (h *Hand) Handle() world.Handle                { return h.handle }
func (h *Hand) Body() *physics.SkeletalBody         { return h.body }
func (h *Hand) Driver() *weld.Driver                { return h.driver }
func (h *Hand) Settings() HandSettings              { return h.settings }
func (h *Hand) AttachmentOffset() spatial.Transform { return h.offset }

// SetupBoneDriver points the bone driver at host. A nil host is ignored, it
// happens while the mesh is still loading.
func (h *Hand) SetupBoneDriver(host weld.Host) {
	if host == nil {
		return
	}
	h.driver.Attach(host, false)
}

// RefreshBoneDriver rebuilds the bindings keeping their rest offsets.
func (h *Hand) RefreshBoneDriver() { h.driver.Refresh() }

// UpdateBones pushes the current bone poses into the collision shapes and
// returns the number of shapes written.
func (h *Hand) UpdateBones() int {
	h.body.SyncMeshToActor()
	return h.driver.Update()
}

// Pose returns the world transform of the hand root.
func (h *Hand) Pose() spatial.Transform {
	t, _ := h.world.Transform(h.handle)
	return t
}

// TeleportTo moves the hand to t, resetting its velocities.
func (h *Hand) TeleportTo(t spatial.Transform) {
	if err := h.world.SetTransform(h.handle, t, true); err != nil {
		h.log.Debug("hand teleport skipped", log.String("hand", h.settings.Name), log.Error(err))
		return
	}
	h.body.SyncMeshToActor()
}

// SetSimulatePhysics toggles whether the solver integrates the hand.
func (h *Hand) SetSimulatePhysics(on bool) {
	h.world.Scene().ExecuteWrite(h.body.Actor(), func(a *physics.RigidActor) {
		a.SetSimulating(on)
	})
}

func (h *Hand) Simulating() bool {
	on := false
	h.world.Scene().ExecuteRead(h.body.Actor(), func(a *physics.RigidActor) { on = a.Simulating() })
	return on
}

// Profile returns the collision profile currently applied to the hand.
func (h *Hand) Profile() string {
	profile := ""
	h.world.Scene().ExecuteRead(h.body.Actor(), func(a *physics.RigidActor) { profile = a.Profile() })
	return profile
}

// ChangeCollisionProfile switches between the active and the inactive
// profile and sets whether the hand simulates.
func (h *Hand) ChangeCollisionProfile(enableActive, simulate bool) {
	h.applyProfile(enableActive)
	h.SetSimulatePhysics(simulate)
}

// EnableCollision toggles the hand's collision with the world.
func (h *Hand) EnableCollision(on bool) { h.applyProfile(on) }

func (h *Hand) applyProfile(active bool) {
	profile := h.settings.InactiveProfile
	if active {
		profile = h.settings.ActiveProfile
	}
	if err := h.world.Scene().SetProfile(h.body.Actor(), profile); err != nil {
		h.log.Error("cannot apply hand collision profile",
			log.String("hand", h.settings.Name),
			log.String("profile", profile),
			log.Error(err),
		)
	}
}

// AttachmentAnchor is the palm socket in world space moved by the attachment
// offset. Without a palm socket the hand root is used.
func (h *Hand) AttachmentAnchor() spatial.Transform {
	h.body.SyncMeshToActor()
	palm, ok := h.body.Mesh().SocketTransform(h.settings.PalmSocket, skeleton.SpaceWorld)
	if !ok {
		palm = h.Pose()
	}
	return h.offset.Mul(palm)
}

func (h *Hand) SetAttachmentOffset(offset spatial.Transform) { h.offset = offset }

// AttachActor welds actor onto the hand.
func (h *Hand) AttachActor(actor world.Handle) error {
	return h.world.AttachTo(actor, h.handle, true)
}

func (h *Hand) DetachActor(actor world.Handle) error {
	return h.world.Detach(actor)
}

// Destroy removes the hand and its body. Held actors are detached first.
func (h *Hand) Destroy() error {
	h.driver.Detach()
	return h.world.Destroy(h.handle)
}
