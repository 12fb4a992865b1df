package ecscore

// Cursor walks a query's matched entities one at a time. Unlike the
// teacher's Cursor, which iterates row indices into a single
// table.Table, this one resolves each entity's current location fresh
// from the entity manager as it advances — matched archetypes can span
// pools of either storage strategy, and a sparse pool's snapshot order
// does not correspond to raw storage indices the way an archetype
// pool's does.
type Cursor struct {
	query *Query

	matchIdx int
	entIdx   int
	entities []EntityHandle

	pool   Pool
	loc    Location
	handle EntityHandle
}

// Next advances to the next matching entity, skipping any that went
// stale between the query's last Update and now (destroyed earlier in
// the same tick by a system that ran before this one). Each matched
// archetype's member list is fetched fresh by id as the cursor reaches
// it, rather than off a copy the query cached at Update time, so an
// archetype that grew since the last Update is still walked in full.
// It returns false once every matched archetype is exhausted.
func (c *Cursor) Next() bool {
	for c.matchIdx < len(c.query.matched) {
		if c.entities == nil {
			m := c.query.matched[c.matchIdx]
			snap, ok := m.pool.SnapshotByID(m.id)
			if !ok {
				c.matchIdx++
				continue
			}
			c.entities = snap.Entities
			c.pool = m.pool
		}
		if c.entIdx+1 >= len(c.entities) {
			c.matchIdx++
			c.entIdx = -1
			c.entities = nil
			continue
		}
		c.entIdx++
		h := c.entities[c.entIdx]
		loc, err := c.query.em.Location(h)
		if err != nil {
			continue
		}
		c.handle = h
		c.loc = loc
		return true
	}
	return false
}

// location reports where the cursor's current entity lives, for
// AccessibleComponent's Pool.GetComponent calls.
func (c *Cursor) location() Location { return c.loc }

// Entity returns the handle of the entity the cursor currently sits
// on.
func (c *Cursor) Entity() EntityHandle { return c.handle }

// Reset rewinds the cursor to before the first entity, reusing the
// same matched set without requalifying against the query's predicate.
func (c *Cursor) Reset() {
	c.matchIdx = 0
	c.entIdx = -1
	c.entities = nil
}
