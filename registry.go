package ecscore

import (
	"fmt"
	"reflect"
	"sync"
)

// ComponentKind identifies a registered component type. Bit position
// in every ComponentMask equals the numeric value of the kind, so
// registration order fixes bit layout for the life of the registry.
type ComponentKind uint32

// ComponentRegistry enumerates every component kind known to a build
// in the order each was first requested, and exposes the kind<->type
// mapping FactoryNewComponent relies on.
// It holds no entity data; it is pure bookkeeping, mirroring the
// teacher's table.Schema but promoted to a single registry shared by
// every pool so that masks computed by different pools stay
// comparable.
type ComponentRegistry struct {
	mu    sync.Mutex
	kinds []componentInfo
	index map[reflect.Type]ComponentKind
}

type componentInfo struct {
	kind ComponentKind
	name string
	typ  reflect.Type
}

// NewComponentRegistry constructs an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{index: make(map[reflect.Type]ComponentKind)}
}

// register returns the kind for typ, assigning the next bit position
// the first time typ is seen. Panics if the registry has already
// filled every bit a ComponentMask can address.
func (r *ComponentRegistry) register(typ reflect.Type) ComponentKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.index[typ]; ok {
		return k
	}
	if len(r.kinds) >= MaxComponentKinds {
		panic(fmt.Sprintf("ecscore: component registry exhausted %d bits registering %v", MaxComponentKinds, typ))
	}
	kind := ComponentKind(len(r.kinds))
	r.kinds = append(r.kinds, componentInfo{kind: kind, name: typ.String(), typ: typ})
	r.index[typ] = kind
	return kind
}

// KindCount returns the number of distinct component kinds registered
// so far.
func (r *ComponentRegistry) KindCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.kinds)
}

// Name returns the registered type's name for kind, or "" if kind is
// out of range.
func (r *ComponentRegistry) Name(kind ComponentKind) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(kind) >= len(r.kinds) {
		return ""
	}
	return r.kinds[kind].name
}

// TypeOf returns the concrete reflect.Type registered for kind.
func (r *ComponentRegistry) TypeOf(kind ComponentKind) reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(kind) >= len(r.kinds) {
		return nil
	}
	return r.kinds[kind].typ
}
