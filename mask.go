package ecscore

import "github.com/TheBitDrifter/mask"

// ComponentMask is a fixed-width bitset, one bit per registered
// component kind. The scheduler reuses it, unchanged, for each system's
// read/write sets — TheBitDrifter/mask.Mask's ContainsAny is exactly
// the overlap test both the Pool/Query matching policy and the
// Dependency Graph's conflict detection need.
type ComponentMask = mask.Mask

// SystemMask is the same bitset type sized for one bit per system. The
// scheduler in system.go does not use it; it orders systems with
// adjacency lists and index slices.
type SystemMask = mask.Mask

// MaxComponentKinds and MaxSystems bound how many distinct bits a
// ComponentMask/SystemMask can address: 128, the widest mask the
// scheduler's bitmask representation is specified to select. The
// teacher's own storage.go reaches for a distinctly-named Mask256 when
// it needs a lock bitset wider than this, which is why ComponentMask
// and SystemMask stay capped here rather than assumed to silently hold
// 256 bits. The teacher selects a mask width at compile time from the
// registry's element count; without a codegen step this module instead
// asserts against the fixed cap the first time a registry would
// overflow it, at registration time, not at use time.
const (
	MaxComponentKinds = 128
	MaxSystems        = 128
)

// bitOf returns a mask with exactly one bit set.
func bitOf(bit uint32) mask.Mask {
	var m mask.Mask
	m.Mark(bit)
	return m
}

// maskOfKinds ORs together the bits for every kind in kinds.
func maskOfKinds(kinds []ComponentKind) mask.Mask {
	var m mask.Mask
	for _, k := range kinds {
		m.Mark(uint32(k))
	}
	return m
}

// maskContains reports whether m contains every bit set in required,
// i.e. (m & required) == required.
func maskContains(m, required mask.Mask) bool {
	return m.ContainsAll(required)
}

// maskAdd returns m with kind's bit set.
func maskAdd(m mask.Mask, kind ComponentKind) mask.Mask {
	m.Mark(uint32(kind))
	return m
}

// maskRemove returns m with kind's bit cleared.
func maskRemove(m mask.Mask, kind ComponentKind) mask.Mask {
	m.Unmark(uint32(kind))
	return m
}

// maskOverlaps reports whether a and b share any set bit.
func maskOverlaps(a, b mask.Mask) bool {
	return a.ContainsAny(b)
}

// maskOr returns the union of a and b.
func maskOr(a, b mask.Mask) mask.Mask {
	for _, k := range maskBits(b) {
		a.Mark(k)
	}
	return a
}

// maskBits returns every set bit position in m, up to MaxComponentKinds.
// mask.Mask exposes containment/overlap tests but not enumeration, so
// this is the one place the core needs to walk individual bits rather
// than compare whole masks.
func maskBits(m mask.Mask) []uint32 {
	var bits []uint32
	for i := uint32(0); i < MaxComponentKinds; i++ {
		if m.ContainsAll(bitOf(i)) {
			bits = append(bits, i)
		}
	}
	return bits
}
