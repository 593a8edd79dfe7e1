// Package spatial holds the rigid-transform math shared by the skeleton,
// physics and grab packages.
//
// Composition follows the convention used by the hand rig everywhere:
// a.Mul(b) applies a first and b second, so a bone's component-space
// transform is local.Mul(parentComponentSpace).
package spatial
