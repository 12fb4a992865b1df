package ecscore

import (
	"go.uber.org/zap"
)

// PoolEvents are optional callbacks fired as pools mutate storage,
// modeled on arche's listener hook rather than the teacher's
// table.TableEvents: this module's archetype engine owns its storage
// directly instead of delegating to TheBitDrifter/table (see DESIGN.md),
// so the hook surface is its own small struct instead of a passthrough
// value.
type PoolEvents struct {
	OnArchetypeCreated func(tag PoolTag, id ArchetypeID, mask ComponentMask)
	OnEntityCreated    func(tag PoolTag, h EntityHandle, loc Location)
	OnEntityDestroyed  func(tag PoolTag, h EntityHandle, loc Location)
}

// Config holds process-wide configuration shared by every pool and by
// the facade. It is deliberately small: the core never reaches for
// ambient state beyond what the teacher's own Config already exposed
// (event hooks) plus the one addition a scheduler/tick runtime needs, a
// logger.
var Config config = config{logger: zap.NewNop()}

type config struct {
	events PoolEvents
	logger *zap.Logger
}

// SetPoolEvents installs the callbacks pools fire on archetype
// creation and entity creation/destruction. Any nil field is simply
// never called.
func (c *config) SetPoolEvents(pe PoolEvents) {
	c.events = pe
}

// Events returns the currently configured pool event hooks.
func (c *config) Events() PoolEvents {
	return c.events
}

// SetLogger installs the logger a facade picks up when NewFacade
// constructs it; the facade uses it only to warn about errors returned
// by a system's Update. Passing nil restores the no-op logger.
func (c *config) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
}

// Logger returns the currently configured logger, never nil.
func (c *config) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}
