package physics

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	wakeDistance = 1e-3
	// stepsToSleep is how many consecutive low-energy steps put an actor to sleep.
	stepsToSleep = 20
)

// Step advances the simulation by dt seconds. Drives use an implicit PD update
// so large stiffness stays stable at VR frame rates.
func (s *Scene) Step(dt float64) {
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]ActorHandle, 0, len(s.actors))
	for h := range s.actors {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	drives := make(map[ActorHandle][]*Constraint, len(s.constraints))
	for _, c := range s.constraints {
		drives[c.target] = append(drives[c.target], c)
	}

	for _, h := range handles {
		a := s.actors[h]
		if a.Welded() || !a.simulating || a.kinematic {
			continue
		}
		cs := drives[h]
		if a.asleep {
			if !s.driveErrorExceeds(a, cs, wakeDistance) {
				continue
			}
			a.asleep = false
		}
		s.integrate(a, cs, dt)
		if a.kineticEnergyPerMass() >= a.sleepThreshold || s.driveErrorExceeds(a, cs, wakeDistance) {
			a.lowEnergySteps = 0
			continue
		}
		a.lowEnergySteps++
		if a.lowEnergySteps >= stepsToSleep {
			a.asleep = true
			a.lowEnergySteps = 0
			a.linearVelocity = mgl64.Vec3{}
			a.angularVelocity = mgl64.Vec3{}
		}
	}

	for _, h := range handles {
		a := s.actors[h]
		if !a.Welded() {
			continue
		}
		if p, ok := s.actors[a.weld.parent]; ok {
			a.globalPose = a.weld.relative.Mul(p.globalPose)
			a.linearVelocity = p.linearVelocity
			a.angularVelocity = p.angularVelocity
		}
	}
}

func (s *Scene) integrate(a *RigidActor, cs []*Constraint, dt float64) {
	var g mgl64.Vec3
	if a.enableGravity {
		g = s.gravity
	}
	m := a.mass

	var (
		kSum, cSum, maxF float64
		kErr             mgl64.Vec3
		kaSum, caSum     float64
		maxT             float64
		kaErr            mgl64.Vec3
	)
	for _, c := range cs {
		anchor, ok := s.actors[c.anchor]
		if !ok {
			continue
		}
		target := anchor.globalPose
		kSum += c.drive.LinearStiffness
		cSum += c.drive.LinearDamping
		maxF += c.drive.LinearMaxForce
		kErr = kErr.Add(target.Translation.Sub(a.globalPose.Translation).Mul(c.drive.LinearStiffness))

		kaSum += c.drive.AngularStiffness
		caSum += c.drive.AngularDamping
		maxT += c.drive.AngularMaxForce
		kaErr = kaErr.Add(rotationError(a.globalPose.Rotation, target.Rotation).Mul(c.drive.AngularStiffness))
	}

	v := a.linearVelocity
	denom := 1 + dt*cSum/m + dt*dt*kSum/m
	next := v.Add(g.Add(kErr.Mul(1/m)).Mul(dt)).Mul(1 / denom)
	if maxF > 0 {
		force := next.Sub(v).Mul(m / dt).Sub(g.Mul(m))
		if n := force.Len(); n > maxF {
			force = force.Mul(maxF / n)
			next = v.Add(g.Add(force.Mul(1 / m)).Mul(dt))
		}
	}
	a.linearVelocity = next
	a.globalPose.Translation = a.globalPose.Translation.Add(next.Mul(dt))

	w := a.angularVelocity
	adenom := 1 + dt*caSum/m + dt*dt*kaSum/m
	wNext := w.Add(kaErr.Mul(dt / m)).Mul(1 / adenom)
	if maxT > 0 {
		torque := wNext.Sub(w).Mul(m / dt)
		if n := torque.Len(); n > maxT {
			wNext = w.Add(torque.Mul(maxT / n).Mul(dt / m))
		}
	}
	a.angularVelocity = wNext
	if speed := wNext.Len(); speed > 0 {
		spin := mgl64.QuatRotate(speed*dt, wNext.Mul(1/speed))
		a.globalPose.Rotation = spin.Mul(a.globalPose.Rotation).Normalize()
	}
}

func (s *Scene) driveErrorExceeds(a *RigidActor, cs []*Constraint, limit float64) bool {
	for _, c := range cs {
		anchor, ok := s.actors[c.anchor]
		if !ok {
			continue
		}
		if anchor.globalPose.Translation.Sub(a.globalPose.Translation).Len() > limit {
			return true
		}
		if rotationError(a.globalPose.Rotation, anchor.globalPose.Rotation).Len() > limit {
			return true
		}
	}
	return false
}

// rotationError returns the axis-angle vector rotating from onto to along the
// shortest arc.
func rotationError(from, to mgl64.Quat) mgl64.Vec3 {
	delta := to.Mul(from.Inverse()).Normalize()
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	sinHalf := delta.V.Len()
	if sinHalf < 1e-12 {
		return mgl64.Vec3{}
	}
	angle := 2 * math.Atan2(sinHalf, delta.W)
	return delta.V.Mul(angle / sinHalf)
}
