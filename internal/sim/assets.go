package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/skeleton"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

var handBones = []skeleton.BoneDef{
	{Name: "hand_r", RefPose: spatial.Identity()},
	{Name: "index_01", Parent: "hand_r", RefPose: spatial.FromTranslation(mgl64.Vec3{0.09, 0.02, 0})},
	{Name: "index_02", Parent: "index_01", RefPose: spatial.FromTranslation(mgl64.Vec3{0.04, 0, 0})},
	{Name: "middle_01", Parent: "hand_r", RefPose: spatial.FromTranslation(mgl64.Vec3{0.095, 0, 0})},
	{Name: "thumb_01", Parent: "hand_r", RefPose: spatial.FromTranslation(mgl64.Vec3{0.02, 0.035, -0.01})},
}

func box(x, y, z float64) physics.ShapeDesc {
	return physics.ShapeDesc{HalfExtents: [3]float64{x, y, z}}
}

// handAsset is the physics asset matching handBones.
var handAsset = &physics.Asset{
	Name: "hand",
	Bodies: []physics.BodyDef{
		{Bone: "hand_r", Shapes: []physics.ShapeDesc{box(0.045, 0.04, 0.015)}},
		{Bone: "index_01", Shapes: []physics.ShapeDesc{box(0.02, 0.008, 0.008)}},
		{Bone: "index_02", Shapes: []physics.ShapeDesc{box(0.015, 0.007, 0.007)}},
		{Bone: "middle_01", Shapes: []physics.ShapeDesc{box(0.022, 0.008, 0.008)}},
		{Bone: "thumb_01", Shapes: []physics.ShapeDesc{box(0.018, 0.009, 0.009)}},
	},
}

// newHandMesh builds a fresh skinned mesh with a socket named palmSocket.
func newHandMesh(rootBone, palmSocket string) (*skeleton.Mesh, error) {
	sk, err := skeleton.New(handBones)
	if err != nil {
		return nil, err
	}
	mesh := skeleton.NewMesh(sk)
	if palmSocket != "" {
		if err := mesh.AddSocket(palmSocket, rootBone, spatial.FromTranslation(mgl64.Vec3{0.03, 0, -0.04})); err != nil {
			return nil, err
		}
	}
	return mesh, nil
}
