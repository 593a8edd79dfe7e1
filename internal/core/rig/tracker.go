package rig

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/spatial"
)

// Tracker is the raw tracked controller. Its pose is the phantom hand.
type Tracker interface {
	Tracked() bool
	// RelativeLocation is the controller position relative to the pawn origin.
	RelativeLocation() mgl64.Vec3
	// PhantomPose is the controller pose in world space.
	PhantomPose() spatial.Transform
}

// Pawn is the player rig the controllers are mounted on.
type Pawn struct {
	mu     sync.RWMutex
	root   spatial.Transform
	camera mgl64.Vec3
}

func NewPawn(root spatial.Transform) *Pawn {
	return &Pawn{root: root}
}

func (p *Pawn) Root() spatial.Transform {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

func (p *Pawn) SetRoot(t spatial.Transform) {
	p.mu.Lock()
	p.root = t
	p.mu.Unlock()
}

// SetCamera places the headset relative to the pawn root.
func (p *Pawn) SetCamera(relative mgl64.Vec3) {
	p.mu.Lock()
	p.camera = relative
	p.mu.Unlock()
}

// CameraLocation returns the headset position in world space.
func (p *Pawn) CameraLocation() mgl64.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root.TransformPosition(p.camera)
}

// TrackedController is a Tracker fed by the host's input layer.
type TrackedController struct {
	mu       sync.RWMutex
	pawn     *Pawn
	tracked  bool
	relative spatial.Transform
}

func NewTrackedController(pawn *Pawn) *TrackedController {
	return &TrackedController{pawn: pawn, relative: spatial.Identity()}
}

// Update stores the latest sample from the tracking system.
func (c *TrackedController) Update(tracked bool, relative spatial.Transform) {
	c.mu.Lock()
	c.tracked = tracked
	c.relative = relative
	c.mu.Unlock()
}

func (c *TrackedController) Tracked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracked
}

func (c *TrackedController) RelativeLocation() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.relative.Translation
}

func (c *TrackedController) PhantomPose() spatial.Transform {
	c.mu.RLock()
	rel := c.relative
	c.mu.RUnlock()
	if c.pawn == nil {
		return rel
	}
	return rel.Mul(c.pawn.Root())
}
