package ecscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type apPosition struct{ X, Y float64 }
type apVelocity struct{ X, Y float64 }

func newArchetypeTestPool(t *testing.T) (*ArchetypePool, *EntityManager, AccessibleComponent[apPosition], AccessibleComponent[apVelocity]) {
	t.Helper()
	registry := NewComponentRegistry()
	position := FactoryNewComponent[apPosition](registry)
	velocity := FactoryNewComponent[apVelocity](registry)

	em := NewEntityManager()
	pool, err := NewArchetypePool("movers", em, []Component{position}, []Component{velocity})
	require.NoError(t, err)
	return pool, em, position, velocity
}

func TestArchetypePoolAddEntitiesPlacesRowsInMatchingArchetype(t *testing.T) {
	pool, _, position, velocity := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{X: 1}).With(velocity, apVelocity{X: 2})

	handles, err := pool.AddEntities(3, builder)
	require.NoError(t, err)
	require.Len(t, handles, 3)
	require.Len(t, pool.Snapshots(), 1)
	require.Len(t, pool.Snapshots()[0].Entities, 3)
}

func TestArchetypePoolRejectsBuilderMissingRequiredComponent(t *testing.T) {
	pool, _, _, velocity := newArchetypeTestPool(t)
	builder := NewBuilder().With(velocity, apVelocity{X: 2})

	_, err := pool.AddEntities(1, builder)
	require.ErrorAs(t, err, &BuilderMaskMismatchError{})
}

func TestArchetypePoolGetComponentReturnsBoxedValue(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{X: 7, Y: 8})

	handles, err := pool.AddEntities(1, builder)
	require.NoError(t, err)

	loc := Location{MaskListIndex: 0, StorageIndex: 0}
	v, err := pool.GetComponent(loc, position.Kind())
	require.NoError(t, err)
	p, ok := v.(*apPosition)
	require.True(t, ok)
	require.Equal(t, 7.0, p.X)
	_ = handles
}

func TestArchetypePoolRemoveEntityReportsSwappedHandle(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{})

	handles, err := pool.AddEntities(3, builder)
	require.NoError(t, err)

	// Removing row 0 (of 3) must swap the last row (handles[2]) into its place.
	swapped, err := pool.RemoveEntity(Location{MaskListIndex: 0, StorageIndex: 0}, "movers")
	require.NoError(t, err)
	require.NotNil(t, swapped)
	require.Equal(t, handles[2], *swapped)
	require.Len(t, pool.Snapshots()[0].Entities, 2)
}

func TestArchetypePoolRemoveEntityLastRowReportsNoSwap(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{})

	handles, err := pool.AddEntities(1, builder)
	require.NoError(t, err)

	swapped, err := pool.RemoveEntity(Location{MaskListIndex: 0, StorageIndex: 0}, "movers")
	require.NoError(t, err)
	require.Nil(t, swapped)
	_ = handles
}

func TestArchetypePoolRemoveEntityWrongPoolTagErrors(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{})
	_, err := pool.AddEntities(1, builder)
	require.NoError(t, err)

	_, err = pool.RemoveEntity(Location{MaskListIndex: 0, StorageIndex: 0}, "other")
	require.ErrorAs(t, err, &EntityPoolMismatchError{})
}

func TestArchetypePoolFlushMigrationsMovesRowToNewArchetype(t *testing.T) {
	pool, em, position, velocity := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{X: 1})

	handles, err := pool.AddEntities(1, builder)
	require.NoError(t, err)
	h := handles[0]
	origin := Location{MaskListIndex: 0, StorageIndex: 0}

	err = pool.QueueComponentChange(h, origin, MigrateAdd, velocity.Kind(), &apVelocity{X: 5})
	require.NoError(t, err)

	results, err := pool.FlushMigrations(em)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Location.MaskListIndex != origin.MaskListIndex)
	require.Len(t, pool.Snapshots(), 2)
	require.Contains(t, pool.NewArchetypes(), ArchetypeID(results[0].Location.MaskListIndex))

	v, err := pool.GetComponent(results[0].Location, velocity.Kind())
	require.NoError(t, err)
	vel, ok := v.(*apVelocity)
	require.True(t, ok)
	require.Equal(t, 5.0, vel.X)
}

func TestArchetypePoolQueueComponentChangePanicsRemovingRequired(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	builder := NewBuilder().With(position, apPosition{})
	handles, err := pool.AddEntities(1, builder)
	require.NoError(t, err)
	h := handles[0]
	origin := Location{MaskListIndex: 0, StorageIndex: 0}

	require.Panics(t, func() {
		_ = pool.QueueComponentChange(h, origin, MigrateRemove, position.Kind(), nil)
	})
}

func TestArchetypePoolLockRejectsImmediateAdd(t *testing.T) {
	pool, _, position, _ := newArchetypeTestPool(t)
	pool.Lock()
	_, err := pool.AddEntities(1, NewBuilder().With(position, apPosition{}))
	require.ErrorAs(t, err, &LockedStorageError{})
}
