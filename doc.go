/*
Package ecscore provides an Entity-Component-System runtime for games and
simulations.

ecscore offers two interchangeable storage engines behind one Pool
contract: an archetype engine that groups entities sharing an exact
component mask into SoA columns, and a sparse-set engine that keeps a
single flat SoA block per pool and tracks component membership through
a lightweight bitmask map. Both engines defer mutation behind queues so
that iteration in progress is never invalidated mid-tick.

Core Concepts:

  - Entity: an (index, generation) handle. A handle becomes stale once
    its slot is released and reused.
  - Component: a typed, registry-assigned bit. Components are declared
    once via FactoryNewComponent and work against a pool of either
    storage strategy, since both implement the same Pool.GetComponent
    contract.
  - Pool: a container of entities sharing a required component set,
    backed by either storage strategy.
  - Query: a read/write/exclude predicate over component kinds, with a
    cache that tracks matching archetypes across pools and must be
    refreshed after every flush.
  - System: a per-tick unit of work declaring the components it reads
    and writes; the Dependency Graph derives a safe execution order from
    those declarations plus any explicit ordering edges.

Basic Usage:

	registry := NewComponentRegistry()
	position := FactoryNewComponent[Position](registry)
	velocity := FactoryNewComponent[Velocity](registry)

	facade := NewFacade(registry, 16)
	_, _ = facade.RegisterPool("movers", StrategyArchetype,
		[]Component{position}, []Component{velocity})

	builder := NewBuilder().
		With(position, Position{}).
		With(velocity, Velocity{X: 1})
	handles, _ := facade.CreateEntities("movers", 100, builder)

	query, _ := facade.NewQuery(
		NewQueryPredicate().Write(position).Read(velocity), "movers")

	_ = facade.Tick(1.0 / 60.0)
	cursor, _ := query.Cursor()
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
	_ = handles

ecscore has no networking, persistence, or scripting surface; those are
left to the embedding application.
*/
package ecscore
