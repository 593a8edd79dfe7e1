package spatial

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultTolerance is the epsilon used by Equals when callers pass zero.
const DefaultTolerance = 1e-4

const smallNumber = 1e-8

// Transform is a rigid transform with per-axis scale. Points are scaled,
// then rotated, then translated.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// Identity returns the transform that maps every point onto itself.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// New builds a transform from its parts. The rotation is normalized.
func New(translation mgl64.Vec3, rotation mgl64.Quat, scale mgl64.Vec3) Transform {
	return Transform{
		Translation: translation,
		Rotation:    rotation.Normalize(),
		Scale:       scale,
	}
}

// FromTranslation returns an unrotated, unit-scale transform at t.
func FromTranslation(t mgl64.Vec3) Transform {
	tr := Identity()
	tr.Translation = t
	return tr
}

// FromRotation returns a transform at the origin rotated by q.
func FromRotation(q mgl64.Quat) Transform {
	tr := Identity()
	tr.Rotation = q.Normalize()
	return tr
}

// FromEulerDegrees builds a rotation from yaw/pitch/roll in degrees around Z, Y, X.
func FromEulerDegrees(yaw, pitch, roll float64) mgl64.Quat {
	return mgl64.AnglesToQuat(
		mgl64.DegToRad(yaw),
		mgl64.DegToRad(pitch),
		mgl64.DegToRad(roll),
		mgl64.ZYX,
	)
}

// Mul composes two transforms so that t is applied first and parent second:
// the result maps a point from t's space through parent's space.
func (t Transform) Mul(parent Transform) Transform {
	return Transform{
		Rotation:    parent.Rotation.Mul(t.Rotation).Normalize(),
		Scale:       mulElem(t.Scale, parent.Scale),
		Translation: parent.Rotation.Rotate(mulElem(parent.Scale, t.Translation)).Add(parent.Translation),
	}
}

// Inverse returns the transform that undoes t. It is exact for uniform scale;
// rotated non-uniform scale cannot be inverted into a single Transform.
// Zero scale components invert to zero rather than infinity.
func (t Transform) Inverse() Transform {
	invRot := t.Rotation.Inverse()
	invScale := safeReciprocal(t.Scale)
	return Transform{
		Rotation:    invRot,
		Scale:       invScale,
		Translation: mulElem(invScale, invRot.Rotate(t.Translation.Mul(-1))),
	}
}

// RelativeTo expresses t in other's space: t.RelativeTo(o).Mul(o) == t.
func (t Transform) RelativeTo(other Transform) Transform {
	return t.Mul(other.Inverse())
}

// TransformPosition maps a point through t.
func (t Transform) TransformPosition(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(mulElem(t.Scale, p)).Add(t.Translation)
}

// TransformVector maps a direction through t, ignoring translation.
func (t Transform) TransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(mulElem(t.Scale, v))
}

// WithScale returns a copy of t carrying scale s.
func (t Transform) WithScale(s mgl64.Vec3) Transform {
	t.Scale = s
	return t
}

// WithTranslation returns a copy of t carrying translation p.
func (t Transform) WithTranslation(p mgl64.Vec3) Transform {
	t.Translation = p
	return t
}

// Equals reports whether both transforms agree within tolerance on every
// component. q and -q are treated as the same rotation.
func (t Transform) Equals(other Transform, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return vecNear(t.Translation, other.Translation, tolerance) &&
		vecNear(t.Scale, other.Scale, tolerance) &&
		quatNear(t.Rotation, other.Rotation, tolerance)
}

// IsValid reports whether every component is finite.
func (t Transform) IsValid() bool {
	for i := 0; i < 3; i++ {
		if !finite(t.Translation[i]) || !finite(t.Scale[i]) || !finite(t.Rotation.V[i]) {
			return false
		}
	}
	return finite(t.Rotation.W)
}

func (t Transform) String() string {
	return fmt.Sprintf("T(%.4f %.4f %.4f) R(%.4f %.4f %.4f %.4f) S(%.4f %.4f %.4f)",
		t.Translation[0], t.Translation[1], t.Translation[2],
		t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2],
		t.Scale[0], t.Scale[1], t.Scale[2],
	)
}

// Blend interpolates from a to b: translation and scale linearly, rotation
// along the shortest arc. alpha is clamped to [0, 1].
func Blend(a, b Transform, alpha float64) Transform {
	alpha = mgl64.Clamp(alpha, 0, 1)
	return Transform{
		Translation: lerpVec(a.Translation, b.Translation, alpha),
		Rotation:    Slerp(a.Rotation, b.Rotation, alpha),
		Scale:       lerpVec(a.Scale, b.Scale, alpha),
	}
}

// Slerp is a shortest-path spherical interpolation.
func Slerp(a, b mgl64.Quat, alpha float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, alpha).Normalize()
}

func lerpVec(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(alpha))
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func safeReciprocal(v mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		if math.Abs(v[i]) > smallNumber {
			out[i] = 1 / v[i]
		}
	}
	return out
}

func vecNear(a, b mgl64.Vec3, tolerance float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

func quatNear(a, b mgl64.Quat, tolerance float64) bool {
	same := math.Abs(a.W-b.W) <= tolerance && vecNear(a.V, b.V, tolerance)
	if same {
		return true
	}
	return math.Abs(a.W+b.W) <= tolerance && vecNear(a.V, b.V.Mul(-1), tolerance)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
