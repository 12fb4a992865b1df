package ecscore

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// migrationOp is one queued add/remove for a single component kind.
type migrationOp struct {
	dir  MigrationDirection
	kind ComponentKind
	data any
}

// pendingMigration accumulates every op queued against one entity
// within a tick, plus the running mask those ops resolve to so far —
// maintaining it incrementally at Enqueue time is what lets N
// alternating Add(k)/Remove(k) pairs validate cleanly and still net
// out to a no-op, spec.md §8 property 7.
type pendingMigration struct {
	entity      EntityHandle
	origin      Location
	runningMask ComponentMask
	ops         []migrationOp
}

// MigrationQueue holds one pendingMigration per entity with changes
// queued this tick, in first-enqueue order.
type MigrationQueue struct {
	byIndex map[EntityIndex]*pendingMigration
	order   []EntityIndex
}

// NewMigrationQueue returns an empty migration queue.
func NewMigrationQueue() *MigrationQueue {
	return &MigrationQueue{byIndex: make(map[EntityIndex]*pendingMigration)}
}

// Enqueue records one add/remove for h. currentMask is the entity's
// live mask as of the last completed flush; requiredMask is the
// owning pool's required set. Validation runs against the running
// mask accumulated so far this tick, not against currentMask alone, so
// a queued Add followed by a queued Remove (or vice versa) is valid
// even though neither has actually moved the entity yet.
func (q *MigrationQueue) Enqueue(h EntityHandle, origin Location, currentMask, requiredMask ComponentMask, dir MigrationDirection, kind ComponentKind, data any) error {
	pm, ok := q.byIndex[h.Index]
	if !ok {
		pm = &pendingMigration{entity: h, origin: origin, runningMask: currentMask}
		q.byIndex[h.Index] = pm
		q.order = append(q.order, h.Index)
	}

	has := maskContains(pm.runningMask, bitOf(uint32(kind)))
	switch dir {
	case MigrateAdd:
		if has {
			return AddingExistingComponentError{Handle: h, Kind: kind}
		}
		if data == nil {
			return NullComponentDataError{Handle: h, Kind: kind}
		}
		pm.runningMask = maskAdd(pm.runningMask, kind)
	case MigrateRemove:
		if !has {
			return RemovingNonexistentComponentError{Handle: h, Kind: kind}
		}
		if maskContains(requiredMask, bitOf(uint32(kind))) {
			panic(bark.AddTrace(RemovingRequiredComponentError{Handle: h, Kind: kind}))
		}
		pm.runningMask = maskRemove(pm.runningMask, kind)
	}
	pm.ops = append(pm.ops, migrationOp{dir: dir, kind: kind, data: data})
	return nil
}

// Empty reports whether any entity has queued changes.
func (q *MigrationQueue) Empty() bool { return len(q.order) == 0 }

// Drain returns every pendingMigration queued this tick, in
// first-enqueue order, and clears the queue.
func (q *MigrationQueue) Drain() []*pendingMigration {
	out := make([]*pendingMigration, 0, len(q.order))
	for _, idx := range q.order {
		out = append(out, q.byIndex[idx])
	}
	q.byIndex = make(map[EntityIndex]*pendingMigration)
	q.order = nil
	return out
}

// RemovingRequiredComponentError is the runtime stand-in for the
// spec's compile-time "removing a required component" rejection: Go
// has no codegen step here to reject it statically, so it is instead
// asserted eagerly, the first time it is attempted, and treated as the
// same class of fatal, traced error as the scheduler's build-time
// failures.
type RemovingRequiredComponentError struct {
	Handle EntityHandle
	Kind   ComponentKind
}

func (e RemovingRequiredComponentError) Error() string {
	return fmt.Sprintf("cannot remove required component kind %d from entity %+v", e.Kind, e.Handle)
}
