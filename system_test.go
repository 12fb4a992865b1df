package ecscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSystem struct {
	tag        SystemTag
	reads      []Component
	writes     []Component
	runsBefore []SystemTag
	runsAfter  []SystemTag
	calls      *[]SystemTag
}

func (s stubSystem) Tag() SystemTag          { return s.tag }
func (s stubSystem) Reads() []Component      { return s.reads }
func (s stubSystem) Writes() []Component     { return s.writes }
func (s stubSystem) RunsBefore() []SystemTag { return s.runsBefore }
func (s stubSystem) RunsAfter() []SystemTag  { return s.runsAfter }
func (s stubSystem) Update(dt float64) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.tag)
	}
	return nil
}

func TestSystemManagerBuildOrdersByExplicitEdges(t *testing.T) {
	registry := NewComponentRegistry()
	position := FactoryNewComponent[spPosition](registry)

	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "render", reads: []Component{position}, runsAfter: []SystemTag{"physics"}}))
	require.NoError(t, sm.Register(stubSystem{tag: "physics", writes: []Component{position}}))

	order, err := sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"physics", "render"}, order)
}

func TestSystemManagerBuildIsStableAcrossRegistrationOrder(t *testing.T) {
	registry := NewComponentRegistry()
	position := FactoryNewComponent[spPosition](registry)
	_ = position

	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a"}))
	require.NoError(t, sm.Register(stubSystem{tag: "b"}))
	require.NoError(t, sm.Register(stubSystem{tag: "c"}))

	order, err := sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"a", "b", "c"}, order)
}

func TestSystemManagerDetectsWriteWriteConflictWithoutOrderingEdge(t *testing.T) {
	registry := NewComponentRegistry()
	position := FactoryNewComponent[spPosition](registry)

	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a", writes: []Component{position}}))
	require.NoError(t, sm.Register(stubSystem{tag: "b", writes: []Component{position}}))

	_, err := sm.Build()
	require.ErrorAs(t, err, &WriteWriteConflictError{})
}

func TestSystemManagerExplicitOrderingResolvesWriteWriteConflict(t *testing.T) {
	registry := NewComponentRegistry()
	position := FactoryNewComponent[spPosition](registry)

	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a", writes: []Component{position}}))
	require.NoError(t, sm.Register(stubSystem{tag: "b", writes: []Component{position}, runsAfter: []SystemTag{"a"}}))

	order, err := sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"a", "b"}, order)
}

func TestSystemManagerDetectsDependencyCycle(t *testing.T) {
	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a", runsAfter: []SystemTag{"b"}}))
	require.NoError(t, sm.Register(stubSystem{tag: "b", runsAfter: []SystemTag{"a"}}))

	_, err := sm.Build()
	require.ErrorAs(t, err, &DependencyCycleError{})
}

func TestSystemManagerUnknownOrderingReferenceErrors(t *testing.T) {
	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a", runsAfter: []SystemTag{"ghost"}}))

	_, err := sm.Build()
	require.ErrorAs(t, err, &UnknownSystemError{})
}

func TestSystemManagerSetActiveLeavesBuiltOrderUnchanged(t *testing.T) {
	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a"}))
	require.NoError(t, sm.Register(stubSystem{tag: "b"}))

	order, err := sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"a", "b"}, order)

	require.NoError(t, sm.SetActive("b", false))
	order, err = sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"a", "b"}, order, "deactivating a system must not shrink its fixed schedule position")
}

func TestSystemManagerSetActiveDoesNotInvalidateBuiltFlag(t *testing.T) {
	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a", runsAfter: []SystemTag{"b"}}))
	require.NoError(t, sm.Register(stubSystem{tag: "b"}))

	_, err := sm.Build()
	require.NoError(t, err)

	require.NoError(t, sm.SetActive("b", false))
	active, err := sm.IsActive("b")
	require.NoError(t, err)
	require.False(t, active)

	// Build still returns the cached order without recomputation, since
	// SetActive never touches sm.built.
	order, err := sm.Build()
	require.NoError(t, err)
	require.Equal(t, []SystemTag{"b", "a"}, order)
}

func TestSystemManagerSetActiveUnknownSystemErrors(t *testing.T) {
	sm := NewSystemManager(8)
	require.NoError(t, sm.Register(stubSystem{tag: "a"}))

	err := sm.SetActive("ghost", false)
	require.ErrorAs(t, err, &UnknownSystemError{})
}
