package ecscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityManagerNewSlotAndGet(t *testing.T) {
	em := NewEntityManager()
	h := em.NewSlot("movers", 0, 3)

	slot, err := em.Get(h)
	require.NoError(t, err)
	require.Equal(t, PoolTag("movers"), slot.poolTag)
	require.Equal(t, 0, slot.maskListIndex)
	require.Equal(t, 3, slot.storageIndex)
}

func TestEntityManagerStaleHandleAfterRelease(t *testing.T) {
	em := NewEntityManager()
	h := em.NewSlot("movers", 0, 0)
	require.NoError(t, em.Release(h))

	_, err := em.Get(h)
	require.ErrorAs(t, err, &StaleEntityError{})
}

func TestEntityManagerFreeListReusesSlotWithBumpedGeneration(t *testing.T) {
	em := NewEntityManager()
	h1 := em.NewSlot("movers", 0, 0)
	require.NoError(t, em.Release(h1))

	h2 := em.NewSlot("movers", 0, 1)
	require.Equal(t, h1.Index, h2.Index)
	require.Equal(t, h1.Generation+1, h2.Generation)

	_, err := em.Get(h1)
	require.ErrorAs(t, err, &StaleEntityError{})
	slot, err := em.Get(h2)
	require.NoError(t, err)
	require.Equal(t, 1, slot.storageIndex)
}

func TestEntityManagerPendingCreateInvisibleUntilFinalize(t *testing.T) {
	em := NewEntityManager()
	h := em.NewPendingSlot("movers")

	_, err := em.Get(h)
	require.ErrorAs(t, err, &EntityPendingCreateError{})

	_, err = em.GetUnchecked(h)
	require.NoError(t, err, "flushers must still resolve a pending-create slot")

	require.NoError(t, em.Finalize(h, 2, 5))
	slot, err := em.Get(h)
	require.NoError(t, err)
	require.Equal(t, 2, slot.maskListIndex)
	require.Equal(t, 5, slot.storageIndex)
}

func TestEntityManagerPendingDestroyStillResolvesUntilReleased(t *testing.T) {
	em := NewEntityManager()
	h := em.NewSlot("movers", 0, 0)
	require.NoError(t, em.MarkPendingDestroy(h))

	_, err := em.Get(h)
	require.ErrorAs(t, err, &EntityPendingDestroyError{})

	loc, err := em.GetUnchecked(h)
	require.NoError(t, err)
	require.Equal(t, 0, loc.storageIndex)
}

func TestEntityManagerGenerationWrapsToZeroAfterMax(t *testing.T) {
	em := NewEntityManager()
	h := em.NewSlot("movers", 0, 0)
	em.slots[h.Index].generation = Generation(^uint32(0))

	require.NoError(t, em.Release(h))
	require.Equal(t, Generation(0), em.slots[h.Index].generation)
}
