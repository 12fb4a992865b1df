package ecscore

import (
	"fmt"
	"sort"
)

// PoolManager owns every registered pool and drives their flushes. Each
// pool updates the entity manager itself while it flushes (Finalize,
// Release, Relocate) and also returns result slices; Flush then applies
// those results once more (relocations and the migrating flag) after
// that pool's flush returns. Grounded on the teacher's storage holding onto and
// iterating its archetypes, generalized to own several independently
// strategy-typed Pools instead of one archetype set.
type PoolManager struct {
	em      *EntityManager
	byTag   map[PoolTag]Pool
	order   []PoolTag
}

// NewPoolManager returns a manager with no pools registered.
func NewPoolManager(em *EntityManager) *PoolManager {
	return &PoolManager{em: em, byTag: make(map[PoolTag]Pool)}
}

// Register adds a pool under its own tag. Tags must be unique.
func (pm *PoolManager) Register(p Pool) error {
	if _, exists := pm.byTag[p.Tag()]; exists {
		return fmt.Errorf("ecscore: pool tag %v already registered", p.Tag())
	}
	pm.byTag[p.Tag()] = p
	pm.order = append(pm.order, p.Tag())
	return nil
}

// PoolByTag looks up a registered pool.
func (pm *PoolManager) PoolByTag(tag PoolTag) (Pool, error) {
	p, ok := pm.byTag[tag]
	if !ok {
		return nil, UnknownPoolError{Tag: tag}
	}
	return p, nil
}

// Pools returns every registered pool, in registration order.
func (pm *PoolManager) Pools() []Pool {
	out := make([]Pool, len(pm.order))
	for i, tag := range pm.order {
		out[i] = pm.byTag[tag]
	}
	return out
}

// LockAll marks every pool locked for the duration of a running tick;
// immediate mutation calls fail with LockedStorageError until
// UnlockAll runs.
func (pm *PoolManager) LockAll() {
	for _, tag := range pm.order {
		pm.byTag[tag].Lock()
	}
}

// UnlockAll releases every pool's tick lock.
func (pm *PoolManager) UnlockAll() {
	for _, tag := range pm.order {
		pm.byTag[tag].Unlock()
	}
}

// CreateEntities is the single entry point both immediate and deferred
// creation go through. When every target pool is unlocked the entities
// land immediately; otherwise handles are minted as pending slots up
// front (so callers can act on them this tick) and the actual
// placement is queued for the next flush.
func (pm *PoolManager) CreateEntities(tag PoolTag, n int, builder *Builder) ([]EntityHandle, error) {
	p, err := pm.PoolByTag(tag)
	if err != nil {
		return nil, err
	}
	if !p.Locked() {
		return p.AddEntities(n, builder)
	}
	handles := make([]EntityHandle, n)
	for i := range handles {
		handles[i] = pm.em.NewPendingSlot(tag)
	}
	p.QueueCreate(handles, builder)
	return handles, nil
}

// DestroyEntity is the single entry point for both immediate and
// deferred destruction.
func (pm *PoolManager) DestroyEntity(h EntityHandle) error {
	slot, err := pm.em.GetUnchecked(h)
	if err != nil {
		return err
	}
	p, err := pm.PoolByTag(slot.poolTag)
	if err != nil {
		return err
	}
	loc := Location{MaskListIndex: slot.maskListIndex, StorageIndex: slot.storageIndex}
	if p.Locked() {
		if err := pm.em.MarkPendingDestroy(h); err != nil {
			return err
		}
		p.QueueDestroy(h, loc)
		return nil
	}
	swapped, err := p.RemoveEntity(loc, slot.poolTag)
	if err != nil {
		return err
	}
	if err := pm.em.Release(h); err != nil {
		return err
	}
	if swapped != nil {
		if err := pm.em.Relocate(*swapped, loc.MaskListIndex, loc.StorageIndex); err != nil {
			return err
		}
	}
	return nil
}

// QueueComponentChange enqueues an add/remove regardless of lock state
// — component migrations always go through the migration queue and are
// only ever applied at a flush, immediate or not, since a mid-tick
// archetype move would invalidate any cursor currently iterating the
// source archetype.
func (pm *PoolManager) QueueComponentChange(h EntityHandle, dir MigrationDirection, kind ComponentKind, data any) error {
	slot, err := pm.em.Get(h)
	if err != nil {
		return err
	}
	p, err := pm.PoolByTag(slot.poolTag)
	if err != nil {
		return err
	}
	loc := Location{MaskListIndex: slot.maskListIndex, StorageIndex: slot.storageIndex}
	if err := p.QueueComponentChange(h, loc, dir, kind, data); err != nil {
		return err
	}
	return pm.em.MarkMigrating(h, true)
}

// Flush runs the two-phase drain spec.md §4.5 describes: every pool's
// entity-op queue drains first (so destroys free slots and creates
// mint fresh ones before anything migrates), then every pool's
// migration queue drains. Pools are flushed in registration order,
// which is deterministic but otherwise unconstrained — no pool's flush
// depends on another's in the same phase.
func (pm *PoolManager) Flush() error {
	for _, tag := range pm.order {
		p := pm.byTag[tag]
		results, err := p.FlushEntityOps(pm.em)
		if err != nil {
			return fmt.Errorf("ecscore: flushing entity ops for pool %v: %w", tag, err)
		}
		for _, res := range results {
			if res.SwappedEntity != nil {
				if err := pm.em.Relocate(*res.SwappedEntity, res.Location.MaskListIndex, res.Location.StorageIndex); err != nil {
					return err
				}
			}
		}
	}
	for _, tag := range pm.order {
		p := pm.byTag[tag]
		results, err := p.FlushMigrations(pm.em)
		if err != nil {
			return fmt.Errorf("ecscore: flushing migrations for pool %v: %w", tag, err)
		}
		for _, res := range results {
			if err := pm.em.Relocate(res.Entity, res.Location.MaskListIndex, res.Location.StorageIndex); err != nil {
				return err
			}
			if err := pm.em.MarkMigrating(res.Entity, false); err != nil {
				return err
			}
			if res.SwappedEntity != nil {
				if err := pm.em.Relocate(*res.SwappedEntity, res.Prior.MaskListIndex, res.Prior.StorageIndex); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ClearEpochLists resets every pool's new/reallocated archetype lists.
// Facade.Tick calls it right after refreshing its queries, once the
// Query Engine has consumed them.
func (pm *PoolManager) ClearEpochLists() {
	for _, tag := range pm.order {
		pm.byTag[tag].ClearEpochLists()
	}
}

// sortedTags returns pool tags sorted for deterministic diagnostics
// output; registration order is used everywhere else.
func (pm *PoolManager) sortedTags() []PoolTag {
	out := make([]PoolTag, len(pm.order))
	copy(out, pm.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
