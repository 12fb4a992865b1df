package ecscore

import (
	"fmt"
	"sort"
)

// SystemTag names a registered system, the same way PoolTag names a
// registered pool.
type SystemTag string

// System is one per-tick unit of work. Reads/Writes declare the
// components the Dependency Graph needs to know about to order systems
// safely; RunsBefore/RunsAfter add explicit edges beyond what the
// component declarations alone would infer.
type System interface {
	Tag() SystemTag
	Reads() []Component
	Writes() []Component
	RunsBefore() []SystemTag
	RunsAfter() []SystemTag
	Update(dt float64) error
}

type systemEntry struct {
	tag        SystemTag
	system     System
	reads      ComponentMask
	writes     ComponentMask
	runsBefore []SystemTag
	runsAfter  []SystemTag
	// enabled is fixed at Register and decides dependency-graph
	// membership: an enabled system occupies a permanent position in
	// the built order. active is the runtime toggle SetActive flips;
	// it never changes graph membership, only whether Tick calls
	// Update this frame.
	enabled bool
	active  bool
}

// SystemManager owns every registered system and the one built
// execution order the Dependency Graph produces from them. Grounded on
// the teacher's ComponentRegistry-style cache (api.go's FactoryNewCache
// pattern), reused here keyed by system tag instead of reflect.Type.
type SystemManager struct {
	cache Cache[systemEntry]
	order []SystemTag
	built bool
}

// NewSystemManager returns a manager that accepts up to capacity
// registered systems.
func NewSystemManager(capacity int) *SystemManager {
	return &SystemManager{cache: NewSimpleCache[systemEntry](capacity)}
}

// Register adds s, enabled and active by default. Registering
// invalidates any previously built order, since it changes which
// systems the Dependency Graph must place.
func (sm *SystemManager) Register(s System) error {
	if sm.cache.Len() >= MaxSystems {
		return fmt.Errorf("ecscore: system manager exhausted %d bits registering %v", MaxSystems, s.Tag())
	}
	var reads, writes ComponentMask
	for _, c := range s.Reads() {
		reads = maskAdd(reads, c.Kind())
	}
	for _, c := range s.Writes() {
		writes = maskAdd(writes, c.Kind())
	}
	entry := systemEntry{
		tag:        s.Tag(),
		system:     s,
		reads:      reads,
		writes:     writes,
		runsBefore: s.RunsBefore(),
		runsAfter:  s.RunsAfter(),
		enabled:    true,
		active:     true,
	}
	if _, err := sm.cache.Register(string(s.Tag()), entry); err != nil {
		return err
	}
	sm.built = false
	return nil
}

// SetActive toggles whether Tick calls tag's Update this frame; the
// facade's queries are refreshed every tick either way. It is a pure
// runtime gate: it never touches
// enabled, never invalidates the built order, and never changes tag's
// fixed position in it.
func (sm *SystemManager) SetActive(tag SystemTag, active bool) error {
	idx, ok := sm.cache.GetIndex(string(tag))
	if !ok {
		return UnknownSystemError{Tag: tag}
	}
	sm.cache.GetItem(idx).active = active
	return nil
}

// IsActive reports tag's current runtime active state.
func (sm *SystemManager) IsActive(tag SystemTag) (bool, error) {
	idx, ok := sm.cache.GetIndex(string(tag))
	if !ok {
		return false, UnknownSystemError{Tag: tag}
	}
	return sm.cache.GetItem(idx).active, nil
}

// System returns the registered System for tag.
func (sm *SystemManager) System(tag SystemTag) (System, error) {
	idx, ok := sm.cache.GetIndex(string(tag))
	if !ok {
		return nil, UnknownSystemError{Tag: tag}
	}
	return sm.cache.GetItem(idx).system, nil
}

// Order returns the last built execution order. Build must have run at
// least once.
func (sm *SystemManager) Order() ([]SystemTag, error) {
	if !sm.built {
		return nil, NotInitializedError{}
	}
	return sm.order, nil
}

// Build runs the Dependency Graph: every enabled system becomes a node
// and RunsBefore/RunsAfter become explicit edges. For any two systems
// with no explicit path between them (direct or transitive), a shared
// written component is reported as an unresolved write-write conflict,
// and a component one writes and the other reads adds an inferred edge
// placing the writer first. The graph is flattened with Kahn's
// algorithm, breaking ties by registration order so the same
// registration set always builds the same schedule; inferred edges in
// both directions between two systems surface as a dependency cycle.
func (sm *SystemManager) Build() ([]SystemTag, error) {
	if sm.built {
		return sm.order, nil
	}
	entries := sm.enabledEntries()
	tagIndex := make(map[SystemTag]int, len(entries))
	for i, e := range entries {
		tagIndex[e.tag] = i
	}

	n := len(entries)
	adj := make([][]int, n)
	indegree := make([]int, n)
	addEdge := func(from, to int) {
		adj[from] = append(adj[from], to)
		indegree[to]++
	}

	for i, e := range entries {
		for _, before := range e.runsBefore {
			j, ok := tagIndex[before]
			if !ok {
				return nil, UnknownSystemError{Tag: before}
			}
			addEdge(i, j)
		}
		for _, after := range e.runsAfter {
			j, ok := tagIndex[after]
			if !ok {
				return nil, UnknownSystemError{Tag: after}
			}
			addEdge(j, i)
		}
	}

	reach := transitiveClosure(adj, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if reach[i][j] || reach[j][i] {
				continue
			}
			if maskOverlaps(entries[i].writes, entries[j].writes) {
				shared := maskAnd(entries[i].writes, entries[j].writes)
				return nil, WriteWriteConflictError{A: entries[i].tag, B: entries[j].tag, Component: firstBit(shared)}
			}
			if maskOverlaps(entries[j].writes, entries[i].reads) {
				addEdge(j, i)
			}
			if maskOverlaps(entries[i].writes, entries[j].reads) {
				addEdge(i, j)
			}
		}
	}

	order := kahnSort(adj, indegree, n)
	if len(order) != n {
		placed := make([]bool, n)
		for _, i := range order {
			placed[i] = true
		}
		var remaining []SystemTag
		for i, e := range entries {
			if !placed[i] {
				remaining = append(remaining, e.tag)
			}
		}
		return nil, DependencyCycleError{Remaining: remaining}
	}

	tags := make([]SystemTag, n)
	for i, idx := range order {
		tags[i] = entries[idx].tag
	}
	sm.order = tags
	sm.built = true
	return tags, nil
}

func (sm *SystemManager) enabledEntries() []systemEntry {
	out := make([]systemEntry, 0, sm.cache.Len())
	for i := 0; i < sm.cache.Len(); i++ {
		e := *sm.cache.GetItem(i)
		if e.enabled {
			out = append(out, e)
		}
	}
	return out
}

// kahnSort runs Kahn's algorithm over adj/indegree, breaking ties
// between simultaneously-ready nodes by their original index so the
// result is deterministic across runs with the same registrations.
func kahnSort(adj [][]int, indegree []int, n int) []int {
	indeg := make([]int, n)
	copy(indeg, indegree)

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, j := range adj[i] {
			indeg[j]--
			if indeg[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	return order
}

// transitiveClosure computes reach[i][j] = true iff a directed path
// from i to j exists in adj, via one DFS per node. n is expected to
// stay small (system counts are tens, not thousands), so the O(n*(n+e))
// cost is not worth trading for a denser bitset representation.
func transitiveClosure(adj [][]int, n int) [][]bool {
	reach := make([][]bool, n)
	for i := range reach {
		reach[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		visited := reach[i]
		var stack []int
		stack = append(stack, adj[i]...)
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[j] {
				continue
			}
			visited[j] = true
			stack = append(stack, adj[j]...)
		}
	}
	return reach
}
