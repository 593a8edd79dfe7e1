// Package rig assembles the VR hand: the physical hand actor with its welded
// bone driver, the motion controller that spawns it once tracking is up and
// drives it through a constraint, and a pool that ticks several hands before
// the physics step.
package rig
