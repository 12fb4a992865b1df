package ecscore

import (
	"fmt"
	"reflect"
	"sort"
)

// archetypeGroup is one archetype within an ArchetypePool: every entity
// in it carries exactly the same component mask, stored column-major so
// a system iterating one component touches only that component's
// memory. Columns hold boxed *T values rather than a table.Accessor[T]
// pair per field — this pool does not depend on TheBitDrifter/table
// (see DESIGN.md) — but the column-per-kind, row-per-entity shape is
// the same one the teacher's table.Table gives it.
type archetypeGroup struct {
	id       ArchetypeID
	mask     ComponentMask
	kinds    []ComponentKind
	columns  map[ComponentKind][]any
	entities []EntityHandle
}

func newArchetypeGroup(id ArchetypeID, m ComponentMask, kinds []ComponentKind) *archetypeGroup {
	cols := make(map[ComponentKind][]any, len(kinds))
	for _, k := range kinds {
		cols[k] = nil
	}
	return &archetypeGroup{id: id, mask: m, kinds: kinds, columns: cols}
}

func (g *archetypeGroup) len() int { return len(g.entities) }

func (g *archetypeGroup) appendRow(h EntityHandle, values map[ComponentKind]any) int {
	row := len(g.entities)
	g.entities = append(g.entities, h)
	for _, k := range g.kinds {
		g.columns[k] = append(g.columns[k], values[k])
	}
	return row
}

// swapRemove deletes row, moving the last row into its place if row
// wasn't already last, and reports the handle that moved, if any, so
// the caller can repoint its slot.
func (g *archetypeGroup) swapRemove(row int) *EntityHandle {
	last := len(g.entities) - 1
	var swapped *EntityHandle
	if row != last {
		h := g.entities[last]
		g.entities[row] = h
		for _, k := range g.kinds {
			g.columns[k][row] = g.columns[k][last]
		}
		swapped = &h
	}
	g.entities = g.entities[:last]
	for _, k := range g.kinds {
		g.columns[k] = g.columns[k][:last]
	}
	return swapped
}

func (g *archetypeGroup) getComponent(row int, kind ComponentKind) (any, bool) {
	col, ok := g.columns[kind]
	if !ok || row < 0 || row >= len(col) {
		return nil, false
	}
	return col[row], true
}

func (g *archetypeGroup) rowValues(row int) map[ComponentKind]any {
	out := make(map[ComponentKind]any, len(g.kinds))
	for _, k := range g.kinds {
		out[k] = g.columns[k][row]
	}
	return out
}

// boxValue returns a freshly allocated *T holding a copy of v, where T
// is v's dynamic type, so later type assertions by AccessibleComponent
// against *T succeed regardless of whether the builder supplied a
// value or a pointer.
func boxValue(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		cp := reflect.New(rv.Elem().Type())
		cp.Elem().Set(rv.Elem())
		return cp.Interface()
	}
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return cp.Interface()
}

// ArchetypePool is the dense, SoA storage engine: entities sharing a
// mask live packed together in one archetypeGroup, favoring fast linear
// iteration over cheap single-component add/remove. Grounded on the
// teacher's storage.go/archetype.go split between a Storage that owns a
// set of archetypes keyed by mask and an archetype that owns one
// homogeneous table.
type ArchetypePool struct {
	tag      PoolTag
	required ComponentMask
	poolMask ComponentMask
	byKind   map[ComponentKind]Component
	em       *EntityManager

	groups    []*archetypeGroup
	idsByMask map[ComponentMask]ArchetypeID

	opQueue  *EntityOperationQueue
	migQueue *MigrationQueue

	lockCount int

	newArchetypes         []ArchetypeID
	reallocatedArchetypes []ArchetypeID
}

var _ Pool = (*ArchetypePool)(nil)

// NewArchetypePool constructs an archetype pool whose entities must
// carry every required component and may carry any subset of optional.
func NewArchetypePool(tag PoolTag, em *EntityManager, required, optional []Component) (*ArchetypePool, error) {
	byKind := make(map[ComponentKind]Component, len(required)+len(optional))
	var reqMask, poolMask ComponentMask
	for _, c := range required {
		if _, dup := byKind[c.Kind()]; dup {
			return nil, fmt.Errorf("ecscore: component %s listed twice for pool %v", c.Name(), tag)
		}
		byKind[c.Kind()] = c
		reqMask = maskAdd(reqMask, c.Kind())
		poolMask = maskAdd(poolMask, c.Kind())
	}
	for _, c := range optional {
		if _, dup := byKind[c.Kind()]; dup {
			return nil, fmt.Errorf("ecscore: component %s listed twice for pool %v", c.Name(), tag)
		}
		byKind[c.Kind()] = c
		poolMask = maskAdd(poolMask, c.Kind())
	}
	return &ArchetypePool{
		tag:       tag,
		required:  reqMask,
		poolMask:  poolMask,
		byKind:    byKind,
		em:        em,
		idsByMask: make(map[ComponentMask]ArchetypeID),
		opQueue:   NewEntityOperationQueue(),
		migQueue:  NewMigrationQueue(),
	}, nil
}

func (p *ArchetypePool) Tag() PoolTag                 { return p.tag }
func (p *ArchetypePool) Strategy() StorageStrategy     { return StrategyArchetype }
func (p *ArchetypePool) RequiredMask() ComponentMask   { return p.required }
func (p *ArchetypePool) PoolMask() ComponentMask       { return p.poolMask }
func (p *ArchetypePool) Locked() bool                  { return p.lockCount > 0 }
func (p *ArchetypePool) Lock()                         { p.lockCount++ }
func (p *ArchetypePool) Unlock() {
	if p.lockCount > 0 {
		p.lockCount--
	}
}

func (p *ArchetypePool) validateMask(m ComponentMask) error {
	if !maskContains(m, p.required) {
		return BuilderMaskMismatchError{Tag: p.tag, Required: p.required, Pool: p.poolMask, Builder: m}
	}
	if !maskContains(p.poolMask, m) {
		return BuilderMaskMismatchError{Tag: p.tag, Required: p.required, Pool: p.poolMask, Builder: m}
	}
	return nil
}

func (p *ArchetypePool) kindsForMask(m ComponentMask) []ComponentKind {
	kinds := make([]ComponentKind, 0, len(p.byKind))
	for k := range p.byKind {
		if maskContains(m, bitOf(uint32(k))) {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (p *ArchetypePool) getOrCreateGroup(m ComponentMask) (*archetypeGroup, bool) {
	if id, ok := p.idsByMask[m]; ok {
		return p.groups[id], false
	}
	id := ArchetypeID(len(p.groups))
	g := newArchetypeGroup(id, m, p.kindsForMask(m))
	p.groups = append(p.groups, g)
	p.idsByMask[m] = id
	if ev := Config.Events().OnArchetypeCreated; ev != nil {
		ev(p.tag, id, m)
	}
	return g, true
}

func (p *ArchetypePool) group(maskListIndex int) (*archetypeGroup, error) {
	if maskListIndex < 0 || maskListIndex >= len(p.groups) {
		return nil, ArchetypeDoesNotExistError{MaskListIndex: maskListIndex}
	}
	return p.groups[maskListIndex], nil
}

func boxedValues(builder *Builder) map[ComponentKind]any {
	out := make(map[ComponentKind]any, len(builder.Components()))
	for _, c := range builder.Components() {
		v, _ := builder.Value(c.Kind())
		out[c.Kind()] = boxValue(v)
	}
	return out
}

// AddEntities places n new rows in the archetype matching builder's
// mask and mints a live slot for each immediately.
func (p *ArchetypePool) AddEntities(n int, builder *Builder) ([]EntityHandle, error) {
	if p.Locked() {
		return nil, LockedStorageError{}
	}
	m := builder.Mask()
	if err := p.validateMask(m); err != nil {
		return nil, err
	}
	group, isNew := p.getOrCreateGroup(m)
	if isNew {
		p.newArchetypes = append(p.newArchetypes, group.id)
	}
	handles := make([]EntityHandle, n)
	for i := 0; i < n; i++ {
		values := boxedValues(builder)
		row := group.appendRow(EntityHandle{}, values)
		h := p.em.NewSlot(p.tag, int(group.id), row)
		group.entities[row] = h
		handles[i] = h
		if ev := Config.Events().OnEntityCreated; ev != nil {
			ev(p.tag, h, Location{MaskListIndex: int(group.id), StorageIndex: row})
		}
	}
	return handles, nil
}

// RemoveEntity deletes the row at loc, reporting whichever handle the
// swap-remove moved into the vacated slot.
func (p *ArchetypePool) RemoveEntity(loc Location, expectedTag PoolTag) (*EntityHandle, error) {
	if expectedTag != p.tag {
		return nil, EntityPoolMismatchError{Expected: p.tag, Actual: expectedTag}
	}
	group, err := p.group(loc.MaskListIndex)
	if err != nil {
		return nil, err
	}
	if loc.StorageIndex < 0 || loc.StorageIndex >= group.len() {
		return nil, ArchetypeDoesNotExistError{MaskListIndex: loc.MaskListIndex}
	}
	return group.swapRemove(loc.StorageIndex), nil
}

func (p *ArchetypePool) QueueCreate(handles []EntityHandle, builder *Builder) {
	p.opQueue.QueueCreate(handles, builder)
}

func (p *ArchetypePool) QueueDestroy(h EntityHandle, loc Location) {
	p.opQueue.QueueDestroy(h, loc)
}

// FlushEntityOps drains the queued creates and destroys, destroys
// first, each sorted so swap-remove never displaces a row still
// waiting to be processed within the same archetype.
func (p *ArchetypePool) FlushEntityOps(em *EntityManager) ([]EntityOpResult, error) {
	destroys, creates := p.opQueue.Drain()
	results := make([]EntityOpResult, 0, len(destroys)+len(creates))

	for _, d := range destroys {
		group, err := p.group(d.loc.MaskListIndex)
		if err != nil {
			continue
		}
		if d.loc.StorageIndex < 0 || d.loc.StorageIndex >= group.len() {
			continue
		}
		swapped := group.swapRemove(d.loc.StorageIndex)
		if err := em.Release(d.handle); err != nil {
			return results, err
		}
		res := EntityOpResult{Op: OpDestroy, Entity: d.handle, Location: d.loc}
		if swapped != nil {
			res.SwappedEntity = swapped
			if err := em.Relocate(*swapped, d.loc.MaskListIndex, d.loc.StorageIndex); err != nil {
				return results, err
			}
		}
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
		group, isNew := p.getOrCreateGroup(m)
		if isNew {
			p.newArchetypes = append(p.newArchetypes, group.id)
		}
		for _, h := range c.handles {
			values := boxedValues(c.builder)
			row := group.appendRow(h, values)
			loc := Location{MaskListIndex: int(group.id), StorageIndex: row}
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

func (p *ArchetypePool) QueueComponentChange(h EntityHandle, loc Location, dir MigrationDirection, kind ComponentKind, data any) error {
	group, err := p.group(loc.MaskListIndex)
	if err != nil {
		return err
	}
	return p.migQueue.Enqueue(h, loc, group.mask, p.required, dir, kind, data)
}

// FlushMigrations drains every pending entity's op list, computes its
// final mask, and moves its row into whichever archetype matches —
// creating that archetype on first use. The row it leaves behind is
// swap-removed exactly like a destroy, so the same repoint obligation
// applies to whatever entity was swapped into its old slot.
func (p *ArchetypePool) FlushMigrations(em *EntityManager) ([]MigrationResult, error) {
	pending := p.migQueue.Drain()
	// Process in descending (mask_list_index, storage_index) order so a
	// swap-remove within one source archetype never invalidates a
	// still-pending migration's origin.
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].origin.MaskListIndex != pending[j].origin.MaskListIndex {
			return pending[i].origin.MaskListIndex > pending[j].origin.MaskListIndex
		}
		return pending[i].origin.StorageIndex > pending[j].origin.StorageIndex
	})

	results := make([]MigrationResult, 0, len(pending))
	for _, pm := range pending {
		srcGroup, err := p.group(pm.origin.MaskListIndex)
		if err != nil {
			return results, err
		}
		row := pm.origin.StorageIndex
		values := srcGroup.rowValues(row)
		for _, op := range pm.ops {
			switch op.dir {
			case MigrateAdd:
				values[op.kind] = boxValue(op.data)
			case MigrateRemove:
				delete(values, op.kind)
			}
		}
		finalMask := pm.runningMask
		swapped := srcGroup.swapRemove(row)
		if swapped != nil {
			if err := em.Relocate(*swapped, pm.origin.MaskListIndex, row); err != nil {
				return results, err
			}
		}

		dstGroup, isNew := p.getOrCreateGroup(finalMask)
		if isNew {
			p.newArchetypes = append(p.newArchetypes, dstGroup.id)
		} else if dstGroup.id != srcGroup.id {
			p.reallocatedArchetypes = append(p.reallocatedArchetypes, dstGroup.id)
		}
		newRow := dstGroup.appendRow(pm.entity, values)
		newLoc := Location{MaskListIndex: int(dstGroup.id), StorageIndex: newRow}
		if err := em.Relocate(pm.entity, newLoc.MaskListIndex, newLoc.StorageIndex); err != nil {
			return results, err
		}

		results = append(results, MigrationResult{
			Entity:        pm.entity,
			Prior:         pm.origin,
			Location:      newLoc,
			FinalMask:     finalMask,
			SwappedEntity: swapped,
		})
	}
	return results, nil
}

func (p *ArchetypePool) GetComponent(loc Location, kind ComponentKind) (any, error) {
	group, err := p.group(loc.MaskListIndex)
	if err != nil {
		return nil, err
	}
	v, ok := group.getComponent(loc.StorageIndex, kind)
	if !ok {
		return nil, ComponentNotInArchetypeError{Kind: kind, ArchetypeID: group.id}
	}
	return v, nil
}

func (p *ArchetypePool) HasComponent(loc Location, kind ComponentKind) bool {
	group, err := p.group(loc.MaskListIndex)
	if err != nil {
		return false
	}
	_, ok := group.getComponent(loc.StorageIndex, kind)
	return ok
}

func (p *ArchetypePool) Snapshots() []ArchetypeSnapshot {
	out := make([]ArchetypeSnapshot, len(p.groups))
	for i, g := range p.groups {
		out[i] = ArchetypeSnapshot{ID: g.id, Mask: g.mask, Required: p.required, Entities: g.entities}
	}
	return out
}

// SnapshotByID returns group id's current entity list directly off its
// archetypeGroup, with no copy: a system iterating it runs inside a
// locked tick, and group.entities only changes again at the next
// flush.
func (p *ArchetypePool) SnapshotByID(id ArchetypeID) (ArchetypeSnapshot, bool) {
	if int(id) < 0 || int(id) >= len(p.groups) {
		return ArchetypeSnapshot{}, false
	}
	g := p.groups[id]
	return ArchetypeSnapshot{ID: g.id, Mask: g.mask, Required: p.required, Entities: g.entities}, true
}

func (p *ArchetypePool) NewArchetypes() []ArchetypeID { return p.newArchetypes }

func (p *ArchetypePool) ReallocatedArchetypes() []ArchetypeID { return p.reallocatedArchetypes }

func (p *ArchetypePool) ClearEpochLists() {
	p.newArchetypes = nil
	p.reallocatedArchetypes = nil
}
