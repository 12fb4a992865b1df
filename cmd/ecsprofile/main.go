// Profiling:
//
//	go build ./cmd/ecsprofile
//	go tool pprof -http=":8000" -nodefraction=0.001 ./ecsprofile cpu.pprof
package main

import (
	"flag"

	"github.com/oakforge/ecscore"
	"github.com/pkg/profile"
)

type profPosition struct{ X, Y float64 }
type profVelocity struct{ X, Y float64 }

func main() {
	mode := flag.String("mode", "cpu", "cpu or mem")
	rounds := flag.Int("rounds", 20, "world setups per run")
	ticks := flag.Int("ticks", 2000, "ticks per world")
	entities := flag.Int("entities", 20000, "entities per world")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "mem":
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	run(*rounds, *ticks, *entities)
	p.Stop()
}

// run scripts the hot path a real embedding application exercises every
// frame: archetype creation, a query refresh, and a system tick, over
// and over against a fresh world each round so a profiler sees both
// steady-state iteration and the one-time archetype/query setup cost.
func run(rounds, ticks, numEntities int) {
	for i := 0; i < rounds; i++ {
		registry := ecscore.NewComponentRegistry()
		position := ecscore.FactoryNewComponent[profPosition](registry)
		velocity := ecscore.FactoryNewComponent[profVelocity](registry)

		facade := ecscore.NewFacade(registry, 4)
		if _, err := facade.RegisterPool("movers", ecscore.StrategyArchetype,
			[]ecscore.Component{position}, []ecscore.Component{velocity}); err != nil {
			panic(err)
		}

		builder := ecscore.NewBuilder().
			With(position, profPosition{}).
			With(velocity, profVelocity{X: 1, Y: 1})
		if _, err := facade.CreateEntities("movers", numEntities, builder); err != nil {
			panic(err)
		}

		query, err := facade.NewQuery(
			ecscore.NewQueryPredicate().Write(position).Read(velocity), "movers")
		if err != nil {
			panic(err)
		}
		sys := &profileMoveSystem{position: position, velocity: velocity, query: query}
		if err := facade.RegisterSystem(sys); err != nil {
			panic(err)
		}

		for t := 0; t < ticks; t++ {
			if err := facade.Tick(1.0 / 60.0); err != nil {
				panic(err)
			}
		}
	}
}

type profileMoveSystem struct {
	position ecscore.AccessibleComponent[profPosition]
	velocity ecscore.AccessibleComponent[profVelocity]
	query    *ecscore.Query
}

func (s *profileMoveSystem) Tag() ecscore.SystemTag          { return "profile-move" }
func (s *profileMoveSystem) Reads() []ecscore.Component      { return []ecscore.Component{s.velocity} }
func (s *profileMoveSystem) Writes() []ecscore.Component     { return []ecscore.Component{s.position} }
func (s *profileMoveSystem) RunsBefore() []ecscore.SystemTag { return nil }
func (s *profileMoveSystem) RunsAfter() []ecscore.SystemTag  { return nil }

func (s *profileMoveSystem) Update(dt float64) error {
	cursor, err := s.query.Cursor()
	if err != nil {
		return err
	}
	for cursor.Next() {
		pos := s.position.GetFromCursor(cursor)
		vel := s.velocity.GetFromCursor(cursor)
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	}
	return nil
}
