package ecscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type spPosition struct{ X, Y float64 }
type spHealth struct{ HP int }

func newSparseTestPool(t *testing.T) (*SparsePool, *EntityManager, AccessibleComponent[spPosition], AccessibleComponent[spHealth]) {
	t.Helper()
	registry := NewComponentRegistry()
	position := FactoryNewComponent[spPosition](registry)
	health := FactoryNewComponent[spHealth](registry)

	em := NewEntityManager()
	pool, err := NewSparsePool("creatures", em, []Component{position}, []Component{health})
	require.NoError(t, err)
	return pool, em, position, health
}

func TestSparsePoolAddEntitiesSharesOneDenseArrayAcrossMasks(t *testing.T) {
	pool, _, position, health := newSparseTestPool(t)

	withHealth, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}).With(health, spHealth{HP: 10}))
	require.NoError(t, err)
	bare, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}))
	require.NoError(t, err)

	require.Len(t, pool.Snapshots(), 2)
	require.NotEqual(t, withHealth[0].Index, bare[0].Index)
}

func TestSparsePoolComponentAddDoesNotMoveStorageIndex(t *testing.T) {
	pool, em, position, health := newSparseTestPool(t)
	handles, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}))
	require.NoError(t, err)
	h := handles[0]

	slot, err := em.Get(h)
	require.NoError(t, err)
	originalStorageIndex := slot.storageIndex
	origin := Location{MaskListIndex: slot.maskListIndex, StorageIndex: slot.storageIndex}

	require.NoError(t, pool.QueueComponentChange(h, origin, MigrateAdd, health.Kind(), &spHealth{HP: 5}))
	results, err := pool.FlushMigrations(em)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The defining property of the sparse engine: adding a component
	// changes which virtual archetype the entity belongs to, but never
	// relocates its row in the shared dense arrays.
	require.Equal(t, originalStorageIndex, results[0].Location.StorageIndex)
	require.NotEqual(t, origin.MaskListIndex, results[0].Location.MaskListIndex)

	v, err := pool.GetComponent(results[0].Location, health.Kind())
	require.NoError(t, err)
	hp, ok := v.(*spHealth)
	require.True(t, ok)
	require.Equal(t, 5, hp.HP)
}

func TestSparsePoolRemoveEntityNeverSwapsAndStorageIndicesStayStable(t *testing.T) {
	pool, _, position, _ := newSparseTestPool(t)
	builder := NewBuilder().With(position, spPosition{})
	handles, err := pool.AddEntities(3, builder)
	require.NoError(t, err)

	swapped, err := pool.RemoveEntity(Location{MaskListIndex: 0, StorageIndex: 0}, "creatures")
	require.NoError(t, err)
	require.Nil(t, swapped, "a sparse pool never swaps another entity into a vacated slot")

	// The other two entities must still resolve at their original
	// storage indices, unmoved by the removal.
	slot1, err := pool.em.Get(handles[1])
	require.NoError(t, err)
	require.Equal(t, 1, slot1.storageIndex)
	slot2, err := pool.em.Get(handles[2])
	require.NoError(t, err)
	require.Equal(t, 2, slot2.storageIndex)
}

func TestSparsePoolRemoveEntityClearsComponentDataAndLeavesOthersIntact(t *testing.T) {
	pool, _, position, health := newSparseTestPool(t)
	require.NoError(t, sowThreeDistinctHealths(pool, position, health))

	_, err := pool.RemoveEntity(Location{StorageIndex: 0}, "creatures")
	require.NoError(t, err)

	_, err = pool.GetComponent(Location{StorageIndex: 0}, health.Kind())
	require.ErrorAs(t, err, &ComponentNotPresentError{})

	v1, err := pool.GetComponent(Location{StorageIndex: 1}, health.Kind())
	require.NoError(t, err)
	require.Equal(t, 2, v1.(*spHealth).HP)

	v2, err := pool.GetComponent(Location{StorageIndex: 2}, health.Kind())
	require.NoError(t, err)
	require.Equal(t, 99, v2.(*spHealth).HP)
}

func TestSparsePoolAddEntitiesReusesFreedStorageIndex(t *testing.T) {
	pool, em, position, _ := newSparseTestPool(t)
	first, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}))
	require.NoError(t, err)

	_, err = pool.RemoveEntity(Location{StorageIndex: 0}, "creatures")
	require.NoError(t, err)

	second, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}))
	require.NoError(t, err)
	require.NotEqual(t, first[0], second[0])

	slot, err := em.Get(second[0])
	require.NoError(t, err)
	require.Equal(t, 0, slot.storageIndex, "AddEntities must reuse the freed slot before growing")
}

func sowThreeDistinctHealths(pool *SparsePool, position AccessibleComponent[spPosition], health AccessibleComponent[spHealth]) error {
	hps := []int{1, 2, 99}
	for _, hp := range hps {
		builder := NewBuilder().With(position, spPosition{}).With(health, spHealth{HP: hp})
		if _, err := pool.AddEntities(1, builder); err != nil {
			return err
		}
	}
	return nil
}

func TestSparsePoolQueueComponentChangeRejectsOutOfRangeLocation(t *testing.T) {
	pool, _, _, health := newSparseTestPool(t)
	err := pool.QueueComponentChange(EntityHandle{}, Location{StorageIndex: 5}, MigrateAdd, health.Kind(), &spHealth{})
	require.ErrorAs(t, err, &ArchetypeDoesNotExistError{})
}

func TestSparsePoolGetComponentMissingKindErrors(t *testing.T) {
	pool, _, position, health := newSparseTestPool(t)
	handles, err := pool.AddEntities(1, NewBuilder().With(position, spPosition{}))
	require.NoError(t, err)
	_ = handles

	_, err = pool.GetComponent(Location{StorageIndex: 0}, health.Kind())
	require.ErrorAs(t, err, &ComponentNotPresentError{})
}
