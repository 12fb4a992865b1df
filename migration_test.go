package ecscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationQueueRejectsAddOfExistingComponent(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}
	current := maskOfKinds([]ComponentKind{1})

	err := q.Enqueue(h, Location{}, current, ComponentMask{}, MigrateAdd, 1, "x")
	require.ErrorAs(t, err, &AddingExistingComponentError{})
}

func TestMigrationQueueRejectsRemoveOfMissingComponent(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}

	err := q.Enqueue(h, Location{}, ComponentMask{}, ComponentMask{}, MigrateRemove, 1, nil)
	require.ErrorAs(t, err, &RemovingNonexistentComponentError{})
}

func TestMigrationQueueRejectsAddWithoutData(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}

	err := q.Enqueue(h, Location{}, ComponentMask{}, ComponentMask{}, MigrateAdd, 1, nil)
	require.ErrorAs(t, err, &NullComponentDataError{})
}

func TestMigrationQueuePanicsRemovingRequiredComponent(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}
	current := maskOfKinds([]ComponentKind{2})
	required := maskOfKinds([]ComponentKind{2})

	require.Panics(t, func() {
		_ = q.Enqueue(h, Location{}, current, required, MigrateRemove, 2, nil)
	})
}

// TestMigrationQueueAlternatingAddRemoveIsRepeatable exercises the
// idempotence property: N repetitions of queuing an Add then a Remove
// for the same kind must each validate cleanly and net out to the
// entity's original mask, since the running mask is what each
// Enqueue call validates against, not the entity's actual (unflushed)
// storage mask.
func TestMigrationQueueAlternatingAddRemoveIsRepeatable(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}
	origin := maskOfKinds([]ComponentKind{0})

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(h, Location{}, origin, ComponentMask{}, MigrateAdd, 7, "v"))
		require.NoError(t, q.Enqueue(h, Location{}, origin, ComponentMask{}, MigrateRemove, 7, nil))
	}

	pending := q.Drain()
	require.Len(t, pending, 1)
	require.Equal(t, origin, pending[0].runningMask)
	require.Len(t, pending[0].ops, 10)
}

func TestMigrationQueueDrainClearsQueue(t *testing.T) {
	q := NewMigrationQueue()
	h := EntityHandle{Index: 1}
	require.NoError(t, q.Enqueue(h, Location{}, ComponentMask{}, ComponentMask{}, MigrateAdd, 3, "v"))

	require.False(t, q.Empty())
	pending := q.Drain()
	require.Len(t, pending, 1)
	require.True(t, q.Empty())
}
