package ecscore

import "fmt"

// AccessibleComponent extends a Component with typed access through
// either storage engine. Where the teacher's AccessibleComponent[T]
// bound directly to a table.Accessor[T] (archetype-only), this one
// goes through Pool.GetComponent, which both the archetype and sparse
// engines implement — so a single generated component value works
// against whichever pool it is registered on.
type AccessibleComponent[T any] struct {
	Component
}

// GetFromCursor retrieves the component for the entity the cursor
// currently sits on. Panics if the archetype the cursor is visiting
// does not carry this component at all — that is a caller bug (the
// component wasn't part of the query or pool config), not a runtime
// condition to recover from.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	v, err := cursor.pool.GetComponent(cursor.location(), c.Kind())
	if err != nil {
		panic(fmt.Sprintf("ecscore: %v", err))
	}
	t, ok := v.(*T)
	if !ok {
		panic(fmt.Sprintf("ecscore: component %s has unexpected type %T", c.Name(), v))
	}
	return t
}

// GetFromCursorSafe is GetFromCursor without the panic: it reports
// whether the component is present before dereferencing.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !cursor.pool.HasComponent(cursor.location(), c.Kind()) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether the component is present at the
// cursor's current position.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return cursor.pool.HasComponent(cursor.location(), c.Kind())
}

// GetFromLocation retrieves the component directly from a pool and
// location, bypassing cursor iteration. Used for indirect reads/writes
// a system performs against an entity handle that didn't come from one
// of its own queries.
func (c AccessibleComponent[T]) GetFromLocation(pool Pool, loc Location) (*T, error) {
	v, err := pool.GetComponent(loc, c.Kind())
	if err != nil {
		return nil, err
	}
	t, ok := v.(*T)
	if !ok {
		return nil, fmt.Errorf("ecscore: component %s has unexpected type %T", c.Name(), v)
	}
	return t, nil
}

// GetFromHandle resolves handle through the entity manager and
// retrieves the component from whichever pool currently owns it.
func (c AccessibleComponent[T]) GetFromHandle(em *EntityManager, pools *PoolManager, h EntityHandle) (*T, error) {
	slot, err := em.Get(h)
	if err != nil {
		return nil, err
	}
	pool, err := pools.PoolByTag(slot.poolTag)
	if err != nil {
		return nil, err
	}
	return c.GetFromLocation(pool, Location{MaskListIndex: slot.maskListIndex, StorageIndex: slot.storageIndex})
}
