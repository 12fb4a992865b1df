package ecscore

import "reflect"

// factory mirrors the teacher's global Factory singleton: a namespace
// for the handful of constructors that need a type parameter rather
// than a runtime value, so callers write FactoryNewComponent[Position]
// the same way the teacher writes table.FactoryNewElementType[T].
type factory struct{}

// Factory is the package's constructor namespace.
var Factory factory

// FactoryNewComponent registers T against registry (first call wins
// the bit position) and returns an AccessibleComponent bound to it.
// Calling it twice for the same T against the same registry returns a
// component with the same Kind both times.
func FactoryNewComponent[T any](registry *ComponentRegistry) AccessibleComponent[T] {
	typ := reflect.TypeFor[T]()
	kind := registry.register(typ)
	return AccessibleComponent[T]{
		Component: baseComponent{kind: kind, name: typ.String()},
	}
}

// FactoryNewCache returns a Cache[T] with the given capacity.
func FactoryNewCache[T any](capacity int) Cache[T] {
	return NewSimpleCache[T](capacity)
}
