package ecscore

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
	"go.uber.org/zap"
)

// Facade is the single entry point embedding code drives: register
// pools and systems against it, create and destroy entities through
// it, and call Tick once per frame. It owns the entity manager, the
// pool manager, and the system manager, and is the only thing that
// ever calls PoolManager.Flush.
type Facade struct {
	registry *ComponentRegistry
	em       *EntityManager
	pools    *PoolManager
	systems  *SystemManager
	queries  []*Query
	logger   *zap.Logger
}

// NewFacade constructs a standalone facade over registry, with room for
// up to systemCapacity registered systems. Most callers want the
// package-level Init/Instance pair instead; NewFacade exists directly
// for tests that need more than one facade alive at once.
func NewFacade(registry *ComponentRegistry, systemCapacity int) *Facade {
	em := NewEntityManager()
	return &Facade{
		registry: registry,
		em:       em,
		pools:    NewPoolManager(em),
		systems:  NewSystemManager(systemCapacity),
		logger:   Config.Logger(),
	}
}

var globalFacade *Facade

// Init constructs the package-level facade instance, replacing any
// prior one.
func Init(registry *ComponentRegistry, systemCapacity int) *Facade {
	globalFacade = NewFacade(registry, systemCapacity)
	return globalFacade
}

// Deinit tears down the package-level facade. Instance fails with
// NotInitializedError until Init runs again.
func Deinit() {
	globalFacade = nil
}

// Instance returns the package-level facade, or NotInitializedError if
// Init hasn't run (or Deinit already tore it down).
func Instance() (*Facade, error) {
	if globalFacade == nil {
		return nil, NotInitializedError{}
	}
	return globalFacade, nil
}

// Registry returns the component registry the facade was built from.
func (f *Facade) Registry() *ComponentRegistry { return f.registry }

// EntityManager exposes the facade's entity manager directly, for
// AccessibleComponent.GetFromHandle and similar call sites that need
// it alongside a pool.
func (f *Facade) EntityManager() *EntityManager { return f.em }

// RegisterPool constructs and registers a new pool under tag, backed
// by the requested storage strategy.
func (f *Facade) RegisterPool(tag PoolTag, strategy StorageStrategy, required, optional []Component) (Pool, error) {
	var p Pool
	var err error
	switch strategy {
	case StrategyArchetype:
		p, err = NewArchetypePool(tag, f.em, required, optional)
	case StrategySparse:
		p, err = NewSparsePool(tag, f.em, required, optional)
	default:
		return nil, fmt.Errorf("ecscore: unknown storage strategy %v", strategy)
	}
	if err != nil {
		return nil, err
	}
	if err := f.pools.Register(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPool looks up a registered pool by tag.
func (f *Facade) GetPool(tag PoolTag) (Pool, error) {
	return f.pools.PoolByTag(tag)
}

// RegisterSystem adds a system to the schedule, enabled by default.
func (f *Facade) RegisterSystem(s System) error {
	return f.systems.Register(s)
}

// SetSystemActive gates whether tag's Update runs on the next and
// subsequent ticks. It is a runtime toggle only: tag keeps its fixed
// position in the built schedule either way.
func (f *Facade) SetSystemActive(tag SystemTag, active bool) error {
	return f.systems.SetActive(tag, active)
}

// GetSystem looks up a registered system by tag.
func (f *Facade) GetSystem(tag SystemTag) (System, error) {
	return f.systems.System(tag)
}

// NewQuery builds a query scoped to the named pools and registers it
// with the facade so Tick refreshes it every frame. poolTags must name
// already-registered pools.
func (f *Facade) NewQuery(predicate *QueryPredicate, poolTags ...PoolTag) (*Query, error) {
	pools := make([]Pool, 0, len(poolTags))
	for _, tag := range poolTags {
		p, err := f.pools.PoolByTag(tag)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	q := NewQuery(predicate, f.em, pools...)
	f.queries = append(f.queries, q)
	return q, nil
}

// CreateEntities creates n entities in the named pool from builder,
// immediately if the pool isn't locked or deferred to the next flush
// if it is.
func (f *Facade) CreateEntities(tag PoolTag, n int, builder *Builder) ([]EntityHandle, error) {
	return f.pools.CreateEntities(tag, n, builder)
}

// DestroyEntity destroys h, immediately or deferred depending on
// whether its owning pool is locked.
func (f *Facade) DestroyEntity(h EntityHandle) error {
	return f.pools.DestroyEntity(h)
}

// AddComponent queues adding c to h, to take effect at the next flush.
func (f *Facade) AddComponent(h EntityHandle, c Component, data any) error {
	return f.pools.QueueComponentChange(h, MigrateAdd, c.Kind(), data)
}

// RemoveComponent queues removing c from h, to take effect at the next
// flush.
func (f *Facade) RemoveComponent(h EntityHandle, c Component) error {
	return f.pools.QueueComponentChange(h, MigrateRemove, c.Kind(), nil)
}

// Entity returns a handle-scoped convenience wrapper around h.
func (f *Facade) Entity(h EntityHandle) EntityRef {
	return EntityRef{facade: f, handle: h}
}

// Tick builds the schedule if it is stale, refreshes every registered
// query, runs every active system in its fixed dependency-graph order
// with every pool locked against immediate mutation, then flushes
// deferred entity ops and migrations. The order itself never shrinks
// when a system goes inactive: Build places every registered system
// once, and SetActive only gates whether Tick calls that system's
// Update this frame, not its membership in the schedule. A malformed
// schedule (a cycle or an unresolved write-write conflict) is a fatal,
// traced panic: there is no sensible partial tick to run instead. A
// system's own Update error is logged and the tick continues; one
// system failing should not stop the rest from running or deferred
// mutations from flushing.
func (f *Facade) Tick(dt float64) error {
	order, err := f.systems.Build()
	if err != nil {
		panic(bark.AddTrace(err))
	}

	for _, q := range f.queries {
		q.Update()
	}
	f.pools.ClearEpochLists()

	f.pools.LockAll()
	var tickErr error
	for _, tag := range order {
		active, err := f.systems.IsActive(tag)
		if err != nil {
			f.pools.UnlockAll()
			return err
		}
		if !active {
			continue
		}
		sys, err := f.systems.System(tag)
		if err != nil {
			f.pools.UnlockAll()
			return err
		}
		if err := sys.Update(dt); err != nil {
			f.logger.Warn("system returned error", zap.String("system", string(tag)), zap.Error(err))
			tickErr = err
		}
	}
	f.pools.UnlockAll()

	if err := f.pools.Flush(); err != nil {
		return fmt.Errorf("ecscore: flush failed: %w", err)
	}
	return tickErr
}

// EntityRef is a handle bound to the facade that minted it, so entity
// lifecycle operations can be chained off a value returned from a
// query without threading the facade through separately.
type EntityRef struct {
	facade *Facade
	handle EntityHandle
}

// Handle returns the underlying entity handle.
func (e EntityRef) Handle() EntityHandle { return e.handle }

// Valid reports whether the handle still resolves to a live slot.
func (e EntityRef) Valid() bool {
	_, err := e.facade.em.Get(e.handle)
	return err == nil
}

// PoolTag reports which pool currently owns the entity.
func (e EntityRef) PoolTag() (PoolTag, error) {
	return e.facade.em.PoolTag(e.handle)
}

// Destroy queues or immediately performs destruction, per DestroyEntity.
func (e EntityRef) Destroy() error {
	return e.facade.DestroyEntity(e.handle)
}

// AddComponent queues adding c with data, per Facade.AddComponent.
func (e EntityRef) AddComponent(c Component, data any) error {
	return e.facade.AddComponent(e.handle, c, data)
}

// RemoveComponent queues removing c, per Facade.RemoveComponent.
func (e EntityRef) RemoveComponent(c Component) error {
	return e.facade.RemoveComponent(e.handle, c)
}
