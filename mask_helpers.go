package ecscore

import "github.com/TheBitDrifter/mask"

// maskAnd returns the intersection of a and b. Built from maskBits
// since mask.Mask does not expose a bitwise AND directly.
func maskAnd(a, b mask.Mask) mask.Mask {
	var out mask.Mask
	for _, k := range maskBits(a) {
		if b.ContainsAll(bitOf(k)) {
			out.Mark(k)
		}
	}
	return out
}

// firstBit returns the lowest set bit in m as a ComponentKind, or 0 if
// m is empty. Used only to pick a representative component for a
// conflict error message.
func firstBit(m mask.Mask) ComponentKind {
	bits := maskBits(m)
	if len(bits) == 0 {
		return 0
	}
	return ComponentKind(bits[0])
}
