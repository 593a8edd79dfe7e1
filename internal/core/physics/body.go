package physics

import (
	"fmt"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/skeleton"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// BodyDef is one body of a physics asset. Shape transforms are relative to
// the bone the body is bound to.
type BodyDef struct {
	Bone   string
	Shapes []ShapeDesc
}

// Asset lists the bodies a skeletal mesh is simulated with.
type Asset struct {
	Name   string
	Bodies []BodyDef
}

// SleepFamily selects how a body scales its sleep threshold.
type SleepFamily uint8

const (
	SleepFamilyNormal SleepFamily = iota
	SleepFamilySensitive
	SleepFamilyCustom
)

// Body is a physics asset body instantiated for one mesh.
type Body struct {
	owner *SkeletalBody
	bone  string
	index int

	sleepFamily           SleepFamily
	customSleepMultiplier float64
}

func (b *Body) Bone() string       { return b.bone }
func (b *Body) BoneIndex() int     { return b.index }
func (b *Body) Actor() ActorHandle { return b.owner.actor }

// WeldParent returns the actor the body's actor is welded into, or NoActor.
func (b *Body) WeldParent() ActorHandle {
	parent := NoActor
	b.owner.scene.ExecuteRead(b.owner.actor, func(a *RigidActor) {
		parent = a.WeldParent()
	})
	return parent
}

// Simulating reports whether the body's actor is integrated by the solver.
func (b *Body) Simulating() bool {
	on := false
	b.owner.scene.ExecuteRead(b.owner.actor, func(a *RigidActor) {
		on = a.Simulating()
	})
	return on
}

// SetCustomSleepThresholdMultiplier switches the body to the custom sleep family.
func (b *Body) SetCustomSleepThresholdMultiplier(m float64) {
	b.sleepFamily = SleepFamilyCustom
	b.customSleepMultiplier = m
}

// SleepThresholdMultiplier returns the factor applied to the actor's sleep
// energy threshold.
func (b *Body) SleepThresholdMultiplier() float64 {
	switch b.sleepFamily {
	case SleepFamilySensitive:
		return 1.0 / 20.0
	case SleepFamilyCustom:
		return b.customSleepMultiplier
	default:
		return 1
	}
}

// SkeletalDesc configures NewSkeletalBody.
type SkeletalDesc struct {
	Name          string
	Mass          float64
	Simulate      bool
	EnableGravity bool
	Profile       string
}

// SkeletalBody binds a mesh and a physics asset to a single rigid actor. The
// actor sits on the skeleton root and carries one shape per asset shape; every
// shape is named after the bone of the body it came from.
type SkeletalBody struct {
	scene  *Scene
	mesh   *skeleton.Mesh
	asset  *Asset
	actor  ActorHandle
	bodies []*Body
	byBone map[string]*Body
}

// NewSkeletalBody creates the actor for mesh from asset. Bodies whose bone is
// missing from the mesh are rejected.
func NewSkeletalBody(scene *Scene, mesh *skeleton.Mesh, asset *Asset, desc SkeletalDesc) (*SkeletalBody, error) {
	if asset == nil || len(asset.Bodies) == 0 {
		return nil, ErrNoBodies
	}

	rootComp := mesh.ComponentSpace(0)
	toRoot := rootComp.Inverse()

	sb := &SkeletalBody{
		scene:  scene,
		mesh:   mesh,
		asset:  asset,
		bodies: make([]*Body, 0, len(asset.Bodies)),
		byBone: make(map[string]*Body, len(asset.Bodies)),
	}

	shapes := make([]ShapeDesc, 0, len(asset.Bodies))
	for _, def := range asset.Bodies {
		idx := mesh.BoneIndex(def.Bone)
		if idx == skeleton.IndexNone {
			return nil, fmt.Errorf("%s/%s: %w", asset.Name, def.Bone, ErrBodyBoneMissing)
		}
		boneInRoot := mesh.ComponentSpace(idx).Mul(toRoot)
		for _, sd := range def.Shapes {
			local := sd.Local
			if local == (spatial.Transform{}) {
				local = spatial.Identity()
			}
			shapes = append(shapes, ShapeDesc{
				Name:        def.Bone,
				Local:       local.Mul(boneInRoot),
				HalfExtents: sd.HalfExtents,
			})
		}
		body := &Body{owner: sb, bone: def.Bone, index: idx}
		sb.bodies = append(sb.bodies, body)
		sb.byBone[def.Bone] = body
	}

	sb.actor = scene.CreateActor(ActorDesc{
		Name:          desc.Name,
		Pose:          rootComp.Mul(mesh.ComponentToWorld()),
		Mass:          desc.Mass,
		Simulate:      desc.Simulate,
		EnableGravity: desc.EnableGravity,
		Profile:       desc.Profile,
		Shapes:        shapes,
	})

	scene.log.Debug("skeletal body created",
		log.String("asset", asset.Name),
		log.Int("bodies", len(sb.bodies)),
		log.Int("shapes", len(shapes)),
	)
	return sb, nil
}

func (sb *SkeletalBody) Scene() *Scene        { return sb.scene }
func (sb *SkeletalBody) Mesh() *skeleton.Mesh { return sb.mesh }
func (sb *SkeletalBody) Asset() *Asset        { return sb.asset }
func (sb *SkeletalBody) Actor() ActorHandle   { return sb.actor }
func (sb *SkeletalBody) Bodies() []*Body      { return sb.bodies }

// RootBody is the first body of the asset.
func (sb *SkeletalBody) RootBody() *Body { return sb.bodies[0] }

// BodyFor returns the body bound to bone.
func (sb *SkeletalBody) BodyFor(bone string) (*Body, bool) {
	b, ok := sb.byBone[bone]
	return b, ok
}

// SyncMeshToActor places the mesh so its root bone matches the actor pose.
func (sb *SkeletalBody) SyncMeshToActor() {
	var pose spatial.Transform
	if !sb.scene.ExecuteRead(sb.actor, func(a *RigidActor) { pose = a.GlobalPose() }) {
		return
	}
	sb.mesh.SetComponentToWorld(sb.mesh.ComponentSpace(0).Inverse().Mul(pose))
}

// Destroy removes the actor from the scene.
func (sb *SkeletalBody) Destroy() error {
	return sb.scene.RemoveActor(sb.actor)
}
