package physics

import (
	"fmt"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// Weld merges child's shapes into parent so both move as one rigid actor.
// The child keeps its current pose relative to the parent. If parent is itself
// welded, the child joins the root of that weld chain.
func (s *Scene) Weld(child, parent ActorHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.actors[child]
	if !ok {
		return fmt.Errorf("weld child %d: %w", child, ErrActorNotFound)
	}
	p, ok := s.actors[parent]
	if !ok {
		return fmt.Errorf("weld parent %d: %w", parent, ErrActorNotFound)
	}
	for p.Welded() {
		p = s.actors[p.weld.parent]
	}
	if c == p {
		return ErrSelfWeld
	}
	if c.Welded() {
		return fmt.Errorf("weld %s: %w", c.name, ErrAlreadyWelded)
	}

	relative := c.globalPose.RelativeTo(p.globalPose)

	c.weld.savedLocals = make(map[ShapeHandle]spatial.Transform, len(c.shapes))
	for _, sh := range c.shapes {
		if sh.origin == c.handle {
			c.weld.savedLocals[sh.handle] = sh.local
		}
		sh.local = sh.local.Mul(relative)
		p.shapes = append(p.shapes, sh)
	}
	c.shapes = nil

	for _, gh := range c.weld.children {
		if g, ok := s.actors[gh]; ok {
			g.weld.parent = p.handle
			g.weld.relative = g.weld.relative.Mul(relative)
			p.weld.children = append(p.weld.children, gh)
		}
	}
	c.weld.children = nil

	c.weld.parent = p.handle
	c.weld.relative = relative
	c.weld.savedSimulate = c.simulating
	c.simulating = false
	p.weld.children = append(p.weld.children, c.handle)
	p.asleep = false

	s.log.Debug("physics actor welded",
		log.String("child", c.name),
		log.String("parent", p.name),
		log.Int("shapes", len(p.shapes)),
	)
	return nil
}

// Unweld splits child back out of its weld parent. The child inherits the
// parent's velocity so released objects keep their momentum.
func (s *Scene) Unweld(child ActorHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unweldLocked(child)
}

func (s *Scene) unweldLocked(child ActorHandle) error {
	c, ok := s.actors[child]
	if !ok {
		return fmt.Errorf("unweld %d: %w", child, ErrActorNotFound)
	}
	if !c.Welded() {
		return fmt.Errorf("unweld %s: %w", c.name, ErrNotWelded)
	}
	p, ok := s.actors[c.weld.parent]
	if !ok {
		c.weld = weldState{}
		return nil
	}

	kept := p.shapes[:0]
	for _, sh := range p.shapes {
		if sh.origin != c.handle {
			kept = append(kept, sh)
			continue
		}
		if saved, ok := c.weld.savedLocals[sh.handle]; ok {
			sh.local = saved
		} else {
			sh.local = sh.local.Mul(c.weld.relative.Inverse())
		}
		c.shapes = append(c.shapes, sh)
	}
	for i := len(kept); i < len(p.shapes); i++ {
		p.shapes[i] = nil
	}
	p.shapes = kept

	for i, h := range p.weld.children {
		if h == c.handle {
			p.weld.children = append(p.weld.children[:i], p.weld.children[i+1:]...)
			break
		}
	}

	c.globalPose = c.weld.relative.Mul(p.globalPose)
	c.simulating = c.weld.savedSimulate
	c.linearVelocity = p.linearVelocity
	c.angularVelocity = p.angularVelocity
	c.asleep = false
	c.weld = weldState{}
	return nil
}
