package ecscore

// Builder is a typed record of the initial values for an entity's
// components. The teacher's pool-specific struct builders need a
// codegen step this module doesn't have (spec.md §9's "where the
// target language cannot generate types from runtime data" case), so
// Builder is a single runtime-validated type shared by every pool: the
// set of keys present IS the entity's initial mask, checked against a
// pool's required/optional sets at AddEntities time, or for a
// QueueCreate at the FlushEntityOps that places it.
type Builder struct {
	values map[ComponentKind]any
	order  []Component
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{values: make(map[ComponentKind]any)}
}

// With records an initial value for c. Calling With twice for the same
// component keeps the last value.
func (b *Builder) With(c Component, value any) *Builder {
	if _, exists := b.values[c.Kind()]; !exists {
		b.order = append(b.order, c)
	}
	b.values[c.Kind()] = value
	return b
}

// Mask returns the bitmask formed by every component the builder has a
// value for.
func (b *Builder) Mask() ComponentMask {
	var m ComponentMask
	for _, c := range b.order {
		m.Mark(uint32(c.Kind()))
	}
	return m
}

// Components returns the components the builder carries, in the order
// With was called.
func (b *Builder) Components() []Component {
	return b.order
}

// Value returns the recorded value for kind and whether one was set.
func (b *Builder) Value(kind ComponentKind) (any, bool) {
	v, ok := b.values[kind]
	return v, ok
}
