package ecscore

// Component is a registered, bit-addressable attribute kind. Both
// storage engines key their masks and their per-entity data on the
// same Component values; a Component created once from a registry is
// valid against any pool built from that registry.
type Component interface {
	Kind() ComponentKind
	Name() string
}

// baseComponent is the common embed for every generated component
// value; it exists so FactoryNewComponent only has to fill two fields
// regardless of T.
type baseComponent struct {
	kind ComponentKind
	name string
}

func (b baseComponent) Kind() ComponentKind { return b.kind }
func (b baseComponent) Name() string        { return b.name }
