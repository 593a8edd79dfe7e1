package skeleton

import (
	"fmt"

	"github.com/zeusync/vrhand/internal/core/spatial"
)

// Space selects the frame a socket transform is reported in.
type Space uint8

const (
	SpaceWorld Space = iota
	SpaceComponent
	SpaceParentBone
)

// Socket is a named attachment point fixed relative to a bone.
type Socket struct {
	Name     Name
	Bone     int
	Relative spatial.Transform
}

// Mesh is an animated instance of a skeleton placed in the world. Local bone
// transforms start at the reference pose and are overwritten by animation.
// Component-space transforms are recomposed lazily.
type Mesh struct {
	skeleton *Skeleton
	local    []spatial.Transform
	comp     []spatial.Transform
	dirty    bool

	componentToWorld spatial.Transform

	sockets     []Socket
	socketIndex nameIndex
}

// NewMesh instantiates sk at the reference pose with an identity world transform.
func NewMesh(sk *Skeleton) *Mesh {
	m := &Mesh{
		skeleton:         sk,
		local:            make([]spatial.Transform, sk.Len()),
		comp:             make([]spatial.Transform, sk.Len()),
		dirty:            true,
		componentToWorld: spatial.Identity(),
		socketIndex:      newNameIndex(4),
	}
	m.ResetToRefPose()
	return m
}

func (m *Mesh) Skeleton() *Skeleton { return m.skeleton }

// BoneIndex returns the index of name on this mesh, or IndexNone.
func (m *Mesh) BoneIndex(name string) int {
	if idx, ok := m.skeleton.FindBone(name); ok {
		return idx
	}
	return IndexNone
}

// AddSocket registers a socket on bone at the given offset.
func (m *Mesh) AddSocket(name, bone string, relative spatial.Transform) error {
	boneIdx, ok := m.skeleton.FindBone(bone)
	if !ok {
		return fmt.Errorf("socket %s on %s: %w", name, bone, ErrUnknownBone)
	}
	n := NewName(name)
	if _, clash := m.skeleton.FindBoneName(n); clash {
		return fmt.Errorf("socket %s: %w", name, ErrSocketConflict)
	}
	if idx, exists := m.socketIndex.find(n); exists {
		m.sockets[idx].Bone = boneIdx
		m.sockets[idx].Relative = relative
		return nil
	}
	m.sockets = append(m.sockets, Socket{Name: n, Bone: boneIdx, Relative: relative})
	m.socketIndex.add(n)
	return nil
}

// ResetToRefPose sets every local transform back to the reference pose.
func (m *Mesh) ResetToRefPose() {
	for i := range m.local {
		m.local[i] = m.skeleton.bones[i].RefPose
	}
	m.dirty = true
}

// SetLocal overrides the parent-relative transform of bone i.
func (m *Mesh) SetLocal(i int, t spatial.Transform) {
	if !m.skeleton.IsValidIndex(i) {
		return
	}
	m.local[i] = t
	m.dirty = true
}

// SetLocalByName is SetLocal addressed by bone name.
func (m *Mesh) SetLocalByName(name string, t spatial.Transform) bool {
	idx, ok := m.skeleton.FindBone(name)
	if !ok {
		return false
	}
	m.SetLocal(idx, t)
	return true
}

func (m *Mesh) Local(i int) spatial.Transform { return m.local[i] }

func (m *Mesh) ComponentToWorld() spatial.Transform { return m.componentToWorld }

func (m *Mesh) SetComponentToWorld(t spatial.Transform) { m.componentToWorld = t }

// ComponentSpace returns bone i relative to the mesh component.
func (m *Mesh) ComponentSpace(i int) spatial.Transform {
	m.refresh()
	return m.comp[i]
}

// SocketTransform resolves a bone or socket name in the requested space.
// Unknown names yield the component transform itself, like the engine does.
func (m *Mesh) SocketTransform(name string, space Space) (spatial.Transform, bool) {
	m.refresh()

	n := NewName(name)
	var (
		inComponent spatial.Transform
		inParent    spatial.Transform
	)
	if idx, ok := m.skeleton.FindBoneName(n); ok {
		inComponent = m.comp[idx]
		inParent = m.local[idx]
	} else if sidx, ok := m.socketIndex.find(n); ok {
		s := m.sockets[sidx]
		inComponent = s.Relative.Mul(m.comp[s.Bone])
		inParent = s.Relative
	} else {
		if space == SpaceWorld {
			return m.componentToWorld, false
		}
		return spatial.Identity(), false
	}

	switch space {
	case SpaceComponent:
		return inComponent, true
	case SpaceParentBone:
		return inParent, true
	default:
		return inComponent.Mul(m.componentToWorld), true
	}
}

func (m *Mesh) refresh() {
	if !m.dirty {
		return
	}
	for i, b := range m.skeleton.bones {
		if b.Parent == IndexNone {
			m.comp[i] = m.local[i]
			continue
		}
		m.comp[i] = m.local[i].Mul(m.comp[b.Parent])
	}
	m.dirty = false
}
