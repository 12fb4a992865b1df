package ecscore

import "fmt"

// Runtime errors. Every runtime error is a typed value so callers can
// distinguish them with errors.As; none of them leave the ECS in an
// inconsistent state, the offending call is the atomic unit.

// LockedStorageError is returned when a pool rejects an immediate
// mutation because the facade has marked itself running.
type LockedStorageError struct{}

func (e LockedStorageError) Error() string { return "pool is locked for the running tick" }

// StaleEntityError is returned by EntityManager.Get when the handle's
// generation no longer matches the slot's current generation.
type StaleEntityError struct{ Handle EntityHandle }

func (e StaleEntityError) Error() string {
	return fmt.Sprintf("stale entity handle: %+v", e.Handle)
}

// EntityPendingCreateError is returned by EntityManager.Get when the
// slot is still behind a queued create.
type EntityPendingCreateError struct{ Handle EntityHandle }

func (e EntityPendingCreateError) Error() string {
	return fmt.Sprintf("entity pending create: %+v", e.Handle)
}

// EntityPendingDestroyError is returned by EntityManager.Get when the
// slot has a queued destroy; storage is still valid until the next
// flush.
type EntityPendingDestroyError struct{ Handle EntityHandle }

func (e EntityPendingDestroyError) Error() string {
	return fmt.Sprintf("entity pending destroy: %+v", e.Handle)
}

// EntityPoolMismatchError is returned when an operation names a pool
// tag that does not own the entity's current slot.
type EntityPoolMismatchError struct {
	Handle   EntityHandle
	Expected PoolTag
	Actual   PoolTag
}

func (e EntityPoolMismatchError) Error() string {
	return fmt.Sprintf("entity %+v belongs to pool %v, not %v", e.Handle, e.Actual, e.Expected)
}

// ComponentNotInArchetypeError is returned by an archetype pool's
// GetComponent when the kind is not part of the archetype's mask.
type ComponentNotInArchetypeError struct {
	Kind        ComponentKind
	ArchetypeID ArchetypeID
}

func (e ComponentNotInArchetypeError) Error() string {
	return fmt.Sprintf("component kind %d not present in archetype %d", e.Kind, e.ArchetypeID)
}

// ComponentNotPresentError is returned by a sparse pool's GetComponent
// when the entity's slot has no value for the kind.
type ComponentNotPresentError struct {
	Kind         ComponentKind
	StorageIndex int
}

func (e ComponentNotPresentError) Error() string {
	return fmt.Sprintf("component kind %d not present at storage index %d", e.Kind, e.StorageIndex)
}

// AddingExistingComponentError is returned when a migration queues an
// Add for a kind the entity's current mask already has.
type AddingExistingComponentError struct {
	Handle EntityHandle
	Kind   ComponentKind
}

func (e AddingExistingComponentError) Error() string {
	return fmt.Sprintf("entity %+v already has component kind %d", e.Handle, e.Kind)
}

// RemovingNonexistentComponentError is returned when a migration
// queues a Remove for a kind the entity's current mask lacks.
type RemovingNonexistentComponentError struct {
	Handle EntityHandle
	Kind   ComponentKind
}

func (e RemovingNonexistentComponentError) Error() string {
	return fmt.Sprintf("entity %+v has no component kind %d to remove", e.Handle, e.Kind)
}

// NullComponentDataError is returned when an Add migration is queued
// with nil data for the kind being added.
type NullComponentDataError struct {
	Handle EntityHandle
	Kind   ComponentKind
}

func (e NullComponentDataError) Error() string {
	return fmt.Sprintf("entity %+v has no data queued for added component kind %d", e.Handle, e.Kind)
}

// BuilderMaskMismatchError is returned when a builder passed to
// AddEntities (or to QueueCreate, reported by the FlushEntityOps that
// places it) either omits one of the pool's required components or
// includes a component the pool was never configured with.
type BuilderMaskMismatchError struct {
	Tag      PoolTag
	Required ComponentMask
	Pool     ComponentMask
	Builder  ComponentMask
}

func (e BuilderMaskMismatchError) Error() string {
	return fmt.Sprintf("builder mask %v does not satisfy pool %v (required %v, pool %v)", e.Builder, e.Tag, e.Required, e.Pool)
}

// ArchetypeDoesNotExistError is returned when a caller addresses an
// archetype or virtual-archetype by an index that no longer resolves.
type ArchetypeDoesNotExistError struct{ MaskListIndex int }

func (e ArchetypeDoesNotExistError) Error() string {
	return fmt.Sprintf("archetype at mask-list index %d does not exist", e.MaskListIndex)
}

// QueryNotUpdatedError is returned by Query.Cursor when the query's
// Update has never run. It does not track whether Update ran after the
// most recent flush.
type QueryNotUpdatedError struct{}

func (e QueryNotUpdatedError) Error() string {
	return "query has not been updated since the last flush"
}

// NotInitializedError is returned by facade accessors before Init has
// run, or after Deinit has torn the singleton down.
type NotInitializedError struct{}

func (e NotInitializedError) Error() string { return "facade is not initialized" }

// UnknownPoolError/UnknownSystemError round out the facade's lookup
// surface.
type UnknownPoolError struct{ Tag PoolTag }

func (e UnknownPoolError) Error() string { return fmt.Sprintf("no pool registered with tag %v", e.Tag) }

type UnknownSystemError struct{ Tag SystemTag }

func (e UnknownSystemError) Error() string {
	return fmt.Sprintf("no system registered with tag %v", e.Tag)
}

// Generation-time (build-time/fatal) errors. These are raised only
// while constructing a schedule: SystemManager.Build returns them, and
// Facade.Tick wraps any Build error with bark.AddTrace and panics,
// because a malformed system registry cannot produce a runnable facade
// at all.

// DependencyCycleError names the systems left unplaced by the
// topological sort once no more systems with zero remaining
// predecessors exist.
type DependencyCycleError struct{ Remaining []SystemTag }

func (e DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle among systems: %v", e.Remaining)
}

// WriteWriteConflictError names two systems that both write a
// component with no explicit ordering edge between them.
type WriteWriteConflictError struct {
	A, B      SystemTag
	Component ComponentKind
}

func (e WriteWriteConflictError) Error() string {
	return fmt.Sprintf("unresolved write-write conflict on component %d between %v and %v", e.Component, e.A, e.B)
}
