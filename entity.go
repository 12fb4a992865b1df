package ecscore

import "math"

// EntityIndex addresses a slot in the EntityManager's slot table.
type EntityIndex uint32

// Generation counts releases of a given EntityIndex. Two handles are
// equal iff both fields match; a handle is stale once its generation
// no longer matches the slot's current generation.
type Generation uint32

// EntityHandle is the value user code and queries pass around. It
// never changes after creation; staleness is detected by comparing
// against the live slot, not by mutating the handle.
type EntityHandle struct {
	Index      EntityIndex
	Generation Generation
}

// PoolTag names a registered pool. Pools are looked up by tag from the
// facade and from entity slots.
type PoolTag string

// entitySlot is the per-entity record the EntityManager owns. Pools
// and the Pool Manager never write its fields directly; they change it
// through EntityManager methods (NewSlot, Finalize, Relocate, Release,
// and so on).
type entitySlot struct {
	index      EntityIndex
	generation Generation

	poolTag       PoolTag
	maskListIndex int
	storageIndex  int

	isMigrating      bool
	isPendingCreate  bool
	isPendingDestroy bool

	live bool
}

// EntityManager allocates entity handles and owns every slot's
// metadata. It is the sole owner of slot state: pools address entities
// by handle and location, never by mutating a slot themselves.
type EntityManager struct {
	slots    []entitySlot
	freeList []EntityIndex
}

// NewEntityManager returns an empty entity manager.
func NewEntityManager() *EntityManager {
	return &EntityManager{}
}

// NewSlot allocates a slot that is immediately live at the given
// location, popping the free list if anything is available there or
// appending a fresh slot otherwise.
func (m *EntityManager) NewSlot(tag PoolTag, maskListIndex, storageIndex int) EntityHandle {
	if len(m.freeList) > 0 {
		idx := m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
		s := &m.slots[idx]
		s.poolTag = tag
		s.maskListIndex = maskListIndex
		s.storageIndex = storageIndex
		s.isMigrating = false
		s.isPendingCreate = false
		s.isPendingDestroy = false
		s.live = true
		return EntityHandle{Index: s.index, Generation: s.generation}
	}
	idx := EntityIndex(len(m.slots))
	m.slots = append(m.slots, entitySlot{
		index:         idx,
		generation:    0,
		poolTag:       tag,
		maskListIndex: maskListIndex,
		storageIndex:  storageIndex,
		live:          true,
	})
	return EntityHandle{Index: idx, Generation: 0}
}

// NewPendingSlot allocates a slot marked isPendingCreate. Its storage
// fields are undefined until Finalize is called; it is invisible to
// Get until then.
func (m *EntityManager) NewPendingSlot(tag PoolTag) EntityHandle {
	h := m.NewSlot(tag, -1, -1)
	s := &m.slots[h.Index]
	s.isPendingCreate = true
	return h
}

// Finalize clears the pending-create flag on handle's slot and writes
// its resolved storage location.
func (m *EntityManager) Finalize(h EntityHandle, maskListIndex, storageIndex int) error {
	s, err := m.getUnchecked(h)
	if err != nil {
		return err
	}
	s.isPendingCreate = false
	s.maskListIndex = maskListIndex
	s.storageIndex = storageIndex
	return nil
}

// Get returns the slot for handle, failing with StaleEntityError,
// EntityPendingCreateError, or EntityPendingDestroyError as
// appropriate. This is the direct-lookup path queries and systems use;
// it must never observe a pending-create entity.
func (m *EntityManager) Get(h EntityHandle) (*entitySlot, error) {
	s, err := m.getUnchecked(h)
	if err != nil {
		return nil, err
	}
	if s.isPendingCreate {
		return nil, EntityPendingCreateError{Handle: h}
	}
	if s.isPendingDestroy {
		return nil, EntityPendingDestroyError{Handle: h}
	}
	return s, nil
}

// GetUnchecked performs only the generation check, skipping the
// pending-create/pending-destroy checks. Flushers use this: a
// pending-destroy entity must still resolve to its storage so the
// flush can address it.
func (m *EntityManager) GetUnchecked(h EntityHandle) (*entitySlot, error) {
	return m.getUnchecked(h)
}

func (m *EntityManager) getUnchecked(h EntityHandle) (*entitySlot, error) {
	if int(h.Index) >= len(m.slots) {
		return nil, StaleEntityError{Handle: h}
	}
	s := &m.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil, StaleEntityError{Handle: h}
	}
	return s, nil
}

// Release increments the slot's generation (wrapping explicitly back to
// 0 after math.MaxUint32), clears every pending flag, and pushes the
// slot onto the free list.
// Any handle issued before Release fails Get from this point on.
func (m *EntityManager) Release(h EntityHandle) error {
	s, err := m.getUnchecked(h)
	if err != nil {
		return err
	}
	if s.generation == math.MaxUint32 {
		s.generation = 0
	} else {
		s.generation++
	}
	s.isMigrating = false
	s.isPendingCreate = false
	s.isPendingDestroy = false
	s.live = false
	m.freeList = append(m.freeList, s.index)
	return nil
}

// MarkPendingDestroy flags handle's slot as pending destroy without
// releasing it; the slot keeps resolving to its storage location until
// the flush that actually releases it.
func (m *EntityManager) MarkPendingDestroy(h EntityHandle) error {
	s, err := m.getUnchecked(h)
	if err != nil {
		return err
	}
	s.isPendingDestroy = true
	return nil
}

// MarkMigrating sets/clears the is_migrating flag recording that an
// entity has changes waiting in a migration queue. The flag is
// bookkeeping only; the migration queue itself keys its entries by
// entity index, so one entity never gets more than one entry list.
func (m *EntityManager) MarkMigrating(h EntityHandle, migrating bool) error {
	s, err := m.getUnchecked(h)
	if err != nil {
		return err
	}
	s.isMigrating = migrating
	return nil
}

// Relocate updates a slot's storage coordinates in place, used by the
// Pool Manager after a flush repoints a swapped entity or moves a
// migrated one.
func (m *EntityManager) Relocate(h EntityHandle, maskListIndex, storageIndex int) error {
	s, err := m.getUnchecked(h)
	if err != nil {
		return err
	}
	s.maskListIndex = maskListIndex
	s.storageIndex = storageIndex
	return nil
}

// Location reports a live slot's current coordinates.
func (m *EntityManager) Location(h EntityHandle) (Location, error) {
	s, err := m.Get(h)
	if err != nil {
		return Location{}, err
	}
	return Location{MaskListIndex: s.maskListIndex, StorageIndex: s.storageIndex}, nil
}

// PoolTag reports a live slot's owning pool.
func (m *EntityManager) PoolTag(h EntityHandle) (PoolTag, error) {
	s, err := m.Get(h)
	if err != nil {
		return "", err
	}
	return s.poolTag, nil
}
