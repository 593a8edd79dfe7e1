package physics

import (
	"fmt"

	"github.com/zeusync/vrhand/internal/core/observability/log"
)

// DriveParams configures the PD drives of a 6-DOF constraint. Every limit is
// free; only the drives pull the target toward the anchor.
type DriveParams struct {
	LinearStiffness float64
	LinearDamping   float64
	LinearMaxForce  float64

	AngularStiffness float64
	AngularDamping   float64
	AngularMaxForce  float64
}

// DefaultDriveParams pulls a hand-sized body firmly but not rigidly.
func DefaultDriveParams() DriveParams {
	return DriveParams{
		LinearStiffness:  10000,
		LinearDamping:    3000,
		LinearMaxForce:   10000,
		AngularStiffness: 1200000,
		AngularDamping:   90000,
		AngularMaxForce:  1200000,
	}
}

// Constraint drives target's pose toward anchor's pose.
type Constraint struct {
	handle     ConstraintHandle
	anchor     ActorHandle
	target     ActorHandle
	targetBody string
	drive      DriveParams
}

func (c *Constraint) Handle() ConstraintHandle { return c.handle }
func (c *Constraint) Anchor() ActorHandle      { return c.anchor }
func (c *Constraint) Target() ActorHandle      { return c.target }
func (c *Constraint) TargetBody() string       { return c.targetBody }
func (c *Constraint) Drive() DriveParams       { return c.drive }

// CreateConstraint links anchor and target. body names the target body the
// drive acts on and is informational for single-actor targets.
func (s *Scene) CreateConstraint(anchor, target ActorHandle, body string, drive DriveParams) (ConstraintHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actors[anchor]; !ok {
		return NoConstraint, fmt.Errorf("constraint anchor %d: %w", anchor, ErrActorNotFound)
	}
	if _, ok := s.actors[target]; !ok {
		return NoConstraint, fmt.Errorf("constraint target %d: %w", target, ErrActorNotFound)
	}

	s.nextConstraint++
	h := s.nextConstraint
	s.constraints[h] = &Constraint{
		handle:     h,
		anchor:     anchor,
		target:     target,
		targetBody: body,
		drive:      drive,
	}
	s.log.Debug("constraint created",
		log.Uint64("constraint", uint64(h)),
		log.Uint64("anchor", uint64(anchor)),
		log.Uint64("target", uint64(target)),
		log.String("body", body),
	)
	return h, nil
}

// BreakConstraint removes h. Unknown handles return ErrConstraintNotFound.
func (s *Scene) BreakConstraint(h ConstraintHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.constraints[h]; !ok {
		return fmt.Errorf("break %d: %w", h, ErrConstraintNotFound)
	}
	delete(s.constraints, h)
	s.log.Debug("constraint broken", log.Uint64("constraint", uint64(h)))
	return nil
}

// ConstraintActive reports whether h is still live.
func (s *Scene) ConstraintActive(h ConstraintHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.constraints[h]
	return ok
}

// ActiveConstraints counts live constraints.
func (s *Scene) ActiveConstraints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.constraints)
}
