package ecscore

import (
	"sort"
)

// sparseSet holds one component kind's values across every entity that
// currently has it, packed densely so iterating that one kind never
// touches entities without it. Grounded on the dense/sparse/swap-pop
// layout lzuwei-pecs-go uses for its component storage, generalized
// from a fixed numeric entity id to this pool's storage index.
type sparseSet struct {
	dense  []any
	owner  []int // dense index -> storage index
	sparse map[int]int
}

func newSparseSet() *sparseSet {
	return &sparseSet{sparse: make(map[int]int)}
}

func (s *sparseSet) get(storageIndex int) (any, bool) {
	idx, ok := s.sparse[storageIndex]
	if !ok {
		return nil, false
	}
	return s.dense[idx], true
}

func (s *sparseSet) set(storageIndex int, value any) {
	if idx, ok := s.sparse[storageIndex]; ok {
		s.dense[idx] = value
		return
	}
	idx := len(s.dense)
	s.dense = append(s.dense, value)
	s.owner = append(s.owner, storageIndex)
	s.sparse[storageIndex] = idx
}

// remove drops storageIndex's value from the set. The set's own dense
// array stays swap-packed internally (a per-kind implementation
// detail, not the pool's storage index), so this never touches another
// storage index's component data.
func (s *sparseSet) remove(storageIndex int) {
	idx, ok := s.sparse[storageIndex]
	if !ok {
		return
	}
	last := len(s.dense) - 1
	if idx != last {
		s.dense[idx] = s.dense[last]
		s.owner[idx] = s.owner[last]
		s.sparse[s.owner[idx]] = idx
	}
	s.dense = s.dense[:last]
	s.owner = s.owner[:last]
	delete(s.sparse, storageIndex)
}

// SparsePool is the sparse-set storage engine: every entity occupies a
// stable row in one shared dense array, and each component kind owns
// its own sparse set, so adding or removing a single component costs
// one set mutation instead of moving the entity's whole row. Virtual
// archetypes (mask groupings) exist only for query bucketing, never for
// physical layout — unlike ArchetypePool, a migration here never moves
// a storage index.
type SparsePool struct {
	tag      PoolTag
	required ComponentMask
	poolMask ComponentMask
	byKind   map[ComponentKind]Component
	em       *EntityManager

	entities []EntityHandle
	masks    []ComponentMask
	groupID  []ArchetypeID
	live     []bool

	// freeList holds storage indices RemoveEntity has cleared. A
	// sparse pool never swap-removes to compact its arrays, so these
	// slots are the only way new entities reuse the space a destroyed
	// one left behind.
	freeList []int

	sets map[ComponentKind]*sparseSet

	groupsByMask map[ComponentMask]ArchetypeID
	groupMasks   []ComponentMask

	// groupMembers holds, per virtual archetype, the live handles
	// currently in it; memberPos is each storage index's position
	// within its current group's slice, so moving between groups (a
	// migration) or leaving one (a removal) is an O(1) swap-pop instead
	// of a rescan of every entity. This is the incremental bookkeeping
	// Snapshots/SnapshotByID read from, instead of rebuilding group
	// membership from scratch on every call.
	groupMembers [][]EntityHandle
	memberPos    []int

	opQueue  *EntityOperationQueue
	migQueue *MigrationQueue

	lockCount int

	newArchetypes         []ArchetypeID
	reallocatedArchetypes []ArchetypeID
}

var _ Pool = (*SparsePool)(nil)

// NewSparsePool constructs a sparse pool over the same required/optional
// component contract ArchetypePool uses.
func NewSparsePool(tag PoolTag, em *EntityManager, required, optional []Component) (*SparsePool, error) {
	byKind := make(map[ComponentKind]Component, len(required)+len(optional))
	var reqMask, poolMask ComponentMask
	for _, c := range required {
		byKind[c.Kind()] = c
		reqMask = maskAdd(reqMask, c.Kind())
		poolMask = maskAdd(poolMask, c.Kind())
	}
	for _, c := range optional {
		byKind[c.Kind()] = c
		poolMask = maskAdd(poolMask, c.Kind())
	}
	return &SparsePool{
		tag:          tag,
		required:     reqMask,
		poolMask:     poolMask,
		byKind:       byKind,
		em:           em,
		sets:         make(map[ComponentKind]*sparseSet),
		groupsByMask: make(map[ComponentMask]ArchetypeID),
		opQueue:      NewEntityOperationQueue(),
		migQueue:     NewMigrationQueue(),
	}, nil
}

func (p *SparsePool) Tag() PoolTag               { return p.tag }
func (p *SparsePool) Strategy() StorageStrategy  { return StrategySparse }
func (p *SparsePool) RequiredMask() ComponentMask { return p.required }
func (p *SparsePool) PoolMask() ComponentMask    { return p.poolMask }
func (p *SparsePool) Locked() bool               { return p.lockCount > 0 }
func (p *SparsePool) Lock()                      { p.lockCount++ }
func (p *SparsePool) Unlock() {
	if p.lockCount > 0 {
		p.lockCount--
	}
}

func (p *SparsePool) validateMask(m ComponentMask) error {
	if !maskContains(m, p.required) || !maskContains(p.poolMask, m) {
		return BuilderMaskMismatchError{Tag: p.tag, Required: p.required, Pool: p.poolMask, Builder: m}
	}
	return nil
}

func (p *SparsePool) groupIDFor(m ComponentMask) ArchetypeID {
	if id, ok := p.groupsByMask[m]; ok {
		return id
	}
	id := ArchetypeID(len(p.groupMasks))
	p.groupsByMask[m] = id
	p.groupMasks = append(p.groupMasks, m)
	p.newArchetypes = append(p.newArchetypes, id)
	if ev := Config.Events().OnArchetypeCreated; ev != nil {
		ev(p.tag, id, m)
	}
	return id
}

func (p *SparsePool) setComponent(storageIndex int, kind ComponentKind, value any) {
	set, ok := p.sets[kind]
	if !ok {
		set = newSparseSet()
		p.sets[kind] = set
	}
	set.set(storageIndex, value)
}

func (p *SparsePool) removeComponent(storageIndex int, kind ComponentKind) {
	if set, ok := p.sets[kind]; ok {
		set.remove(storageIndex)
	}
}

// addToGroup records storageIndex's handle as a member of id, growing
// groupMembers to cover id if this is its first member.
func (p *SparsePool) addToGroup(id ArchetypeID, storageIndex int, h EntityHandle) {
	for ArchetypeID(len(p.groupMembers)) <= id {
		p.groupMembers = append(p.groupMembers, nil)
	}
	p.groupMembers[id] = append(p.groupMembers[id], h)
	p.memberPos[storageIndex] = len(p.groupMembers[id]) - 1
}

// removeFromGroup swap-pops storageIndex out of id's member list. This
// reorders id's member slice but never touches a storage index — it is
// bookkeeping for query bucketing only, independent of where entities
// physically live.
func (p *SparsePool) removeFromGroup(id ArchetypeID, storageIndex int) {
	members := p.groupMembers[id]
	pos := p.memberPos[storageIndex]
	last := len(members) - 1
	if pos != last {
		moved := members[last]
		members[pos] = moved
		if slot, err := p.em.GetUnchecked(moved); err == nil {
			p.memberPos[slot.storageIndex] = pos
		}
	}
	p.groupMembers[id] = members[:last]
}

// allocStorageIndex returns a storage index for a new entity, reusing
// the most recently freed slot before growing the backing arrays.
func (p *SparsePool) allocStorageIndex() int {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx
	}
	idx := len(p.entities)
	p.entities = append(p.entities, EntityHandle{})
	p.masks = append(p.masks, ComponentMask{})
	p.groupID = append(p.groupID, 0)
	p.live = append(p.live, false)
	p.memberPos = append(p.memberPos, -1)
	return idx
}

// placeAt fills storageIndex (already allocated by allocStorageIndex)
// with h's component data and returns the archetype group it lands in.
func (p *SparsePool) placeAt(storageIndex int, h EntityHandle, m ComponentMask, builder *Builder) ArchetypeID {
	p.entities[storageIndex] = h
	p.masks[storageIndex] = m
	groupID := p.groupIDFor(m)
	p.groupID[storageIndex] = groupID
	p.live[storageIndex] = true
	p.addToGroup(groupID, storageIndex, h)
	for _, c := range builder.Components() {
		v, _ := builder.Value(c.Kind())
		p.setComponent(storageIndex, c.Kind(), boxValue(v))
	}
	return groupID
}

func (p *SparsePool) AddEntities(n int, builder *Builder) ([]EntityHandle, error) {
	if p.Locked() {
		return nil, LockedStorageError{}
	}
	m := builder.Mask()
	if err := p.validateMask(m); err != nil {
		return nil, err
	}
	handles := make([]EntityHandle, n)
	for i := 0; i < n; i++ {
		storageIndex := p.allocStorageIndex()
		h := p.em.NewSlot(p.tag, 0, storageIndex)
		groupID := p.placeAt(storageIndex, h, m, builder)
		loc := Location{MaskListIndex: int(groupID), StorageIndex: storageIndex}
		if err := p.em.Relocate(h, loc.MaskListIndex, loc.StorageIndex); err != nil {
			return nil, err
		}
		handles[i] = h
		if ev := Config.Events().OnEntityCreated; ev != nil {
			ev(p.tag, h, loc)
		}
	}
	return handles, nil
}

// RemoveEntity clears every slot at loc.StorageIndex and pushes it to
// the free list. Unlike ArchetypePool, it never swaps another entity
// into the vacated slot, so every other entity's storage index stays
// stable across the call.
func (p *SparsePool) RemoveEntity(loc Location, expectedTag PoolTag) (*EntityHandle, error) {
	if expectedTag != p.tag {
		return nil, EntityPoolMismatchError{Expected: p.tag, Actual: expectedTag}
	}
	storageIndex := loc.StorageIndex
	if storageIndex < 0 || storageIndex >= len(p.entities) || !p.live[storageIndex] {
		return nil, ArchetypeDoesNotExistError{MaskListIndex: loc.MaskListIndex}
	}
	for _, set := range p.sets {
		set.remove(storageIndex)
	}
	p.removeFromGroup(p.groupID[storageIndex], storageIndex)
	p.entities[storageIndex] = EntityHandle{}
	p.masks[storageIndex] = ComponentMask{}
	p.groupID[storageIndex] = 0
	p.live[storageIndex] = false
	p.freeList = append(p.freeList, storageIndex)
	return nil, nil
}

func (p *SparsePool) QueueCreate(handles []EntityHandle, builder *Builder) {
	p.opQueue.QueueCreate(handles, builder)
}

func (p *SparsePool) QueueDestroy(h EntityHandle, loc Location) {
	p.opQueue.QueueDestroy(h, loc)
}

func (p *SparsePool) FlushEntityOps(em *EntityManager) ([]EntityOpResult, error) {
	destroys, creates := p.opQueue.Drain()
	sort.Slice(destroys, func(i, j int) bool { return destroys[i].loc.StorageIndex > destroys[j].loc.StorageIndex })
	results := make([]EntityOpResult, 0, len(destroys)+len(creates))

	for _, d := range destroys {
		// RemoveEntity never swaps for a sparse pool, so there is no
		// SwappedEntity to relocate here, unlike ArchetypePool's flush.
		if _, err := p.RemoveEntity(d.loc, p.tag); err != nil {
			continue
		}
		if err := em.Release(d.handle); err != nil {
			return results, err
		}
		res := EntityOpResult{Op: OpDestroy, Entity: d.handle, Location: d.loc}
		if ev := Config.Events().OnEntityDestroyed; ev != nil {
			ev(p.tag, d.handle, d.loc)
		}
		results = append(results, res)
	}

	for _, c := range creates {
		m := c.builder.Mask()
		if err := p.validateMask(m); err != nil {
			return results, err
		}
		for _, h := range c.handles {
			storageIndex := p.allocStorageIndex()
			groupID := p.placeAt(storageIndex, h, m, c.builder)
			loc := Location{MaskListIndex: int(groupID), StorageIndex: storageIndex}
			if err := em.Finalize(h, loc.MaskListIndex, loc.StorageIndex); err != nil {
				return results, err
			}
			results = append(results, EntityOpResult{Op: OpCreate, Entity: h, Location: loc})
			if ev := Config.Events().OnEntityCreated; ev != nil {
				ev(p.tag, h, loc)
			}
		}
	}

	return results, nil
}

func (p *SparsePool) QueueComponentChange(h EntityHandle, loc Location, dir MigrationDirection, kind ComponentKind, data any) error {
	if loc.StorageIndex < 0 || loc.StorageIndex >= len(p.masks) {
		return ArchetypeDoesNotExistError{MaskListIndex: loc.MaskListIndex}
	}
	return p.migQueue.Enqueue(h, loc, p.masks[loc.StorageIndex], p.required, dir, kind, data)
}

// FlushMigrations never moves a storage index: a sparse pool's whole
// advantage over the archetype engine is that add/remove only touches
// the one sparse set involved.
func (p *SparsePool) FlushMigrations(em *EntityManager) ([]MigrationResult, error) {
	pending := p.migQueue.Drain()
	results := make([]MigrationResult, 0, len(pending))
	for _, pm := range pending {
		storageIndex := pm.origin.StorageIndex
		for _, op := range pm.ops {
			switch op.dir {
			case MigrateAdd:
				p.setComponent(storageIndex, op.kind, boxValue(op.data))
			case MigrateRemove:
				p.removeComponent(storageIndex, op.kind)
			}
		}
		finalMask := pm.runningMask
		p.masks[storageIndex] = finalMask
		newGroup := p.groupIDFor(finalMask)
		oldGroup := p.groupID[storageIndex]
		if newGroup != oldGroup {
			p.removeFromGroup(oldGroup, storageIndex)
			p.addToGroup(newGroup, storageIndex, pm.entity)
			p.reallocatedArchetypes = append(p.reallocatedArchetypes, newGroup)
		}
		p.groupID[storageIndex] = newGroup
		loc := Location{MaskListIndex: int(newGroup), StorageIndex: storageIndex}
		if err := em.Relocate(pm.entity, loc.MaskListIndex, loc.StorageIndex); err != nil {
			return results, err
		}
		results = append(results, MigrationResult{Entity: pm.entity, Prior: pm.origin, Location: loc, FinalMask: finalMask})
	}
	return results, nil
}

func (p *SparsePool) GetComponent(loc Location, kind ComponentKind) (any, error) {
	set, ok := p.sets[kind]
	if !ok {
		return nil, ComponentNotPresentError{Kind: kind, StorageIndex: loc.StorageIndex}
	}
	v, ok := set.get(loc.StorageIndex)
	if !ok {
		return nil, ComponentNotPresentError{Kind: kind, StorageIndex: loc.StorageIndex}
	}
	return v, nil
}

func (p *SparsePool) HasComponent(loc Location, kind ComponentKind) bool {
	set, ok := p.sets[kind]
	if !ok {
		return false
	}
	_, ok = set.get(loc.StorageIndex)
	return ok
}

// Snapshots reads directly from groupMembers, which addToGroup and
// removeFromGroup keep current as entities are placed, removed, and
// migrated — no rescan of p.entities is needed.
func (p *SparsePool) Snapshots() []ArchetypeSnapshot {
	out := make([]ArchetypeSnapshot, len(p.groupMasks))
	for i, m := range p.groupMasks {
		var members []EntityHandle
		if i < len(p.groupMembers) {
			members = p.groupMembers[i]
		}
		out[i] = ArchetypeSnapshot{ID: ArchetypeID(i), Mask: m, Required: p.required, Entities: members}
	}
	return out
}

// SnapshotByID returns one virtual archetype's current members directly
// out of groupMembers, without walking the others.
func (p *SparsePool) SnapshotByID(id ArchetypeID) (ArchetypeSnapshot, bool) {
	if int(id) < 0 || int(id) >= len(p.groupMasks) {
		return ArchetypeSnapshot{}, false
	}
	var members []EntityHandle
	if int(id) < len(p.groupMembers) {
		members = p.groupMembers[id]
	}
	return ArchetypeSnapshot{ID: id, Mask: p.groupMasks[id], Required: p.required, Entities: members}, true
}

func (p *SparsePool) NewArchetypes() []ArchetypeID { return p.newArchetypes }

func (p *SparsePool) ReallocatedArchetypes() []ArchetypeID { return p.reallocatedArchetypes }

func (p *SparsePool) ClearEpochLists() {
	p.newArchetypes = nil
	p.reallocatedArchetypes = nil
}
