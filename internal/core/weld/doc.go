// Package weld keeps per-bone collision shapes of a single rigid actor in step
// with an animated skeleton.
//
// A skeletal hand is simulated as one rigid actor carrying a shape per finger
// bone. The actor cannot deform, so every pre-physics tick the Driver
// recomputes each shape's actor-local transform from the current bone pose:
//
//	local = rest.Mul(boneWorld).Mul(actorGlobalPose.Inverse())
//
// where rest is the shape's offset from its bone captured at setup time.
package weld
