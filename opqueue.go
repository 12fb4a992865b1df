package ecscore

import "sort"

// entityCreateOp is one queued batch-create. The handles are minted up
// front via EntityManager.NewPendingSlot so callers receive real,
// comparable handles before the flush that actually places them in
// storage runs; QueueCreate/FlushEntityOps only resolve where each one
// lands.
type entityCreateOp struct {
	handles []EntityHandle
	builder *Builder
}

// entityDestroyOp is one queued destroy, pinned to the location the
// entity had when the destroy was queued.
type entityDestroyOp struct {
	handle EntityHandle
	loc    Location
}

// EntityOperationQueue defers entity creation and destruction until a
// flush. Spec.md §4.4.1 requires destroys to drain before creates,
// sorted by descending storage index within the destroy batch — the
// same swap-remove safety concern the migration queue's sort
// addresses, scoped here to one archetype's worth of destroys landing
// in the same tick.
type EntityOperationQueue struct {
	creates  []entityCreateOp
	destroys []entityDestroyOp
}

// NewEntityOperationQueue returns an empty queue.
func NewEntityOperationQueue() *EntityOperationQueue {
	return &EntityOperationQueue{}
}

// QueueCreate records a pending batch-create for handles already
// minted as pending slots.
func (q *EntityOperationQueue) QueueCreate(handles []EntityHandle, b *Builder) {
	q.creates = append(q.creates, entityCreateOp{handles: handles, builder: b})
}

// QueueDestroy records a pending destroy.
func (q *EntityOperationQueue) QueueDestroy(h EntityHandle, loc Location) {
	q.destroys = append(q.destroys, entityDestroyOp{handle: h, loc: loc})
}

// Empty reports whether anything is queued.
func (q *EntityOperationQueue) Empty() bool {
	return len(q.creates) == 0 && len(q.destroys) == 0
}

// Drain returns destroys (sorted by descending mask-list index, then by
// descending storage index within each archetype) followed logically
// by creates, and clears
// the queue. Callers process the two slices in that order.
func (q *EntityOperationQueue) Drain() (destroys []entityDestroyOp, creates []entityCreateOp) {
	destroys = q.destroys
	creates = q.creates
	sort.Slice(destroys, func(i, j int) bool {
		if destroys[i].loc.MaskListIndex != destroys[j].loc.MaskListIndex {
			return destroys[i].loc.MaskListIndex > destroys[j].loc.MaskListIndex
		}
		return destroys[i].loc.StorageIndex > destroys[j].loc.StorageIndex
	})
	q.creates = nil
	q.destroys = nil
	return destroys, creates
}
