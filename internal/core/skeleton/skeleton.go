package skeleton

import (
	"errors"
	"fmt"

	"github.com/zeusync/vrhand/internal/core/spatial"
)

// IndexNone marks a missing bone.
const IndexNone = -1

var (
	ErrEmptySkeleton  = errors.New("skeleton has no bones")
	ErrDuplicateBone  = errors.New("duplicate bone name")
	ErrInvalidParent  = errors.New("bone parent must precede the bone")
	ErrRootHasParent  = errors.New("root bone must not have a parent")
	ErrUnnamedBone    = errors.New("bone name is required")
	ErrUnknownBone    = errors.New("unknown bone")
	ErrSocketConflict = errors.New("socket name collides with a bone")
)

// BoneDef is the input used to build a Skeleton.
type BoneDef struct {
	Name    string
	Parent  string
	RefPose spatial.Transform
}

// Bone is one entry of the reference skeleton. RefPose is relative to the
// parent bone.
type Bone struct {
	Name    Name
	Parent  int
	RefPose spatial.Transform
}

// Skeleton is an immutable bone hierarchy. Parents always precede their
// children and index 0 is the root.
type Skeleton struct {
	bones []Bone
	index nameIndex
}

// New builds a skeleton from bone definitions listed parent-first.
func New(defs []BoneDef) (*Skeleton, error) {
	if len(defs) == 0 {
		return nil, ErrEmptySkeleton
	}

	sk := &Skeleton{
		bones: make([]Bone, 0, len(defs)),
		index: newNameIndex(len(defs)),
	}

	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("bone %d: %w", i, ErrUnnamedBone)
		}
		name := NewName(d.Name)
		if _, dup := sk.index.find(name); dup {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrDuplicateBone)
		}

		parent := IndexNone
		if i == 0 {
			if d.Parent != "" {
				return nil, fmt.Errorf("%s: %w", d.Name, ErrRootHasParent)
			}
		} else {
			p, ok := sk.index.find(NewName(d.Parent))
			if !ok {
				return nil, fmt.Errorf("%s (parent %q): %w", d.Name, d.Parent, ErrInvalidParent)
			}
			parent = p
		}

		pose := d.RefPose
		if pose == (spatial.Transform{}) {
			pose = spatial.Identity()
		}

		sk.bones = append(sk.bones, Bone{Name: name, Parent: parent, RefPose: pose})
		sk.index.add(name)
	}

	return sk, nil
}

func (s *Skeleton) Len() int { return len(s.bones) }

// Bone returns the bone at i. The caller must pass a valid index.
func (s *Skeleton) Bone(i int) Bone { return s.bones[i] }

// IsValidIndex reports whether i addresses a bone.
func (s *Skeleton) IsValidIndex(i int) bool { return i >= 0 && i < len(s.bones) }

// FindBone returns the index of the named bone.
func (s *Skeleton) FindBone(name string) (int, bool) {
	return s.index.find(NewName(name))
}

// FindBoneName is FindBone for an interned name.
func (s *Skeleton) FindBoneName(name Name) (int, bool) {
	return s.index.find(name)
}

// RelativeTransform composes the reference-pose transforms of bone and its
// ancestors up to, but excluding, ancestor or the root. Invalid input, the
// root itself and bone == ancestor all yield identity.
func RelativeTransform(s *Skeleton, bone, ancestor int) spatial.Transform {
	if s == nil || bone <= 0 || bone >= len(s.bones) || bone == ancestor {
		return spatial.Identity()
	}

	b := s.bones[bone]
	t := b.RefPose
	if b.Parent != 0 && b.Parent != ancestor && b.Parent != IndexNone {
		t = t.Mul(RelativeTransform(s, b.Parent, ancestor))
	}
	return t
}

// RefPoseRelativeToRoot resolves name and returns its reference pose relative
// to the root. Unknown names yield identity.
func RefPoseRelativeToRoot(s *Skeleton, name string) spatial.Transform {
	if s == nil || name == "" {
		return spatial.Identity()
	}
	idx, ok := s.FindBone(name)
	if !ok {
		return spatial.Identity()
	}
	return RelativeTransform(s, idx, 0)
}
