package skeleton

import "github.com/cespare/xxhash/v2"

// Name is an interned identifier for bones, sockets and shapes. Comparison
// goes through the precomputed hash first.
type Name struct {
	value string
	hash  uint64
}

// None is the empty name.
var None = Name{}

func NewName(s string) Name {
	if s == "" {
		return None
	}
	return Name{value: s, hash: xxhash.Sum64String(s)}
}

func (n Name) String() string { return n.value }
func (n Name) Hash() uint64   { return n.hash }
func (n Name) IsNone() bool   { return n.value == "" }

func (n Name) Equal(other Name) bool {
	return n.hash == other.hash && n.value == other.value
}

// nameIndex maps names to slice positions. Hash collisions fall back to a
// string-keyed overflow map.
type nameIndex struct {
	byHash   map[uint64]int
	overflow map[string]int
	names    []Name
}

func newNameIndex(capacity int) nameIndex {
	return nameIndex{
		byHash: make(map[uint64]int, capacity),
		names:  make([]Name, 0, capacity),
	}
}

func (x *nameIndex) add(n Name) int {
	idx := len(x.names)
	x.names = append(x.names, n)
	if prev, ok := x.byHash[n.hash]; ok && !x.names[prev].Equal(n) {
		if x.overflow == nil {
			x.overflow = make(map[string]int)
		}
		x.overflow[n.value] = idx
		return idx
	}
	if _, ok := x.byHash[n.hash]; !ok {
		x.byHash[n.hash] = idx
	}
	return idx
}

func (x *nameIndex) find(n Name) (int, bool) {
	if n.IsNone() {
		return 0, false
	}
	if idx, ok := x.byHash[n.hash]; ok && x.names[idx].Equal(n) {
		return idx, true
	}
	if x.overflow != nil {
		idx, ok := x.overflow[n.value]
		return idx, ok
	}
	return 0, false
}
