package ecscore

// QueryPredicate names the components a query reads, writes, and
// excludes. Read/write are tracked separately from each other, not
// just as a combined "required" set, because the Dependency Graph
// needs the distinction to tell a read-only system apart from one that
// mutates the same component. Resolves the same role the teacher's
// And/Or/Not query tree plays, narrowed to the flatter read/write/
// exclude shape spec.md's query model actually needs.
type QueryPredicate struct {
	read    ComponentMask
	write   ComponentMask
	exclude ComponentMask
}

// NewQueryPredicate returns an empty predicate matching every
// archetype in whatever pools it is run against.
func NewQueryPredicate() *QueryPredicate {
	return &QueryPredicate{}
}

// Read adds components the query requires but only reads.
func (p *QueryPredicate) Read(components ...Component) *QueryPredicate {
	for _, c := range components {
		p.read = maskAdd(p.read, c.Kind())
	}
	return p
}

// Write adds components the query requires and may mutate.
func (p *QueryPredicate) Write(components ...Component) *QueryPredicate {
	for _, c := range components {
		p.write = maskAdd(p.write, c.Kind())
	}
	return p
}

// Exclude adds components that disqualify an archetype from matching.
func (p *QueryPredicate) Exclude(components ...Component) *QueryPredicate {
	for _, c := range components {
		p.exclude = maskAdd(p.exclude, c.Kind())
	}
	return p
}

// ReadMask, WriteMask, and ExcludeMask expose the accumulated masks for
// the Dependency Graph's conflict detection.
func (p *QueryPredicate) ReadMask() ComponentMask    { return p.read }
func (p *QueryPredicate) WriteMask() ComponentMask   { return p.write }
func (p *QueryPredicate) ExcludeMask() ComponentMask { return p.exclude }

// RequiredMask is read|write: every component an archetype must carry
// to match at all.
func (p *QueryPredicate) RequiredMask() ComponentMask {
	return maskOr(p.read, p.write)
}

func (p *QueryPredicate) matches(m ComponentMask) bool {
	if !maskContains(m, p.RequiredMask()) {
		return false
	}
	return !maskOverlaps(m, p.exclude)
}

// queryMatch pins one matched archetype (or virtual archetype) to the
// pool that owns it, since a query can span pools with different
// storage strategies. It carries no entity data itself — Cursor and
// Len re-fetch the archetype's current members by id on every pass, so
// a matched archetype's membership growing or shrinking between ticks
// is never stale.
type queryMatch struct {
	pool Pool
	id   ArchetypeID
}

// Query is a live view over every pool it was built against, filtered
// by a predicate. Init does the one full scan of every pool's
// archetypes; Update, called every tick after the first, only walks
// each pool's new_archetypes and reallocated_archetypes lists, so a
// query with a stable matched set never re-touches an archetype it
// already knows about.
type Query struct {
	predicate *QueryPredicate
	em        *EntityManager
	pools     []Pool

	matched []queryMatch
	seen    map[Pool]map[ArchetypeID]bool
	ever    bool
}

// NewQuery builds a query over the given pools; pools not listed are
// never scanned, even if their archetypes would otherwise match.
func NewQuery(predicate *QueryPredicate, em *EntityManager, pools ...Pool) *Query {
	return &Query{
		predicate: predicate,
		em:        em,
		pools:     pools,
		seen:      make(map[Pool]map[ArchetypeID]bool, len(pools)),
	}
}

// addMatch records (pool, id) as matching, if it isn't already. Safe to
// call repeatedly for the same archetype, since reallocatedArchetypes
// can report the same destination id across several ticks as more
// entities migrate into it.
func (q *Query) addMatch(p Pool, id ArchetypeID) {
	byID, ok := q.seen[p]
	if !ok {
		byID = make(map[ArchetypeID]bool)
		q.seen[p] = byID
	}
	if byID[id] {
		return
	}
	byID[id] = true
	q.matched = append(q.matched, queryMatch{pool: p, id: id})
}

// init performs the full scan: every archetype in every pool is
// checked against the predicate once. Called automatically the first
// time Update runs.
func (q *Query) init() {
	for _, p := range q.pools {
		for _, snap := range p.Snapshots() {
			if q.predicate.matches(snap.Mask) {
				q.addMatch(p, snap.ID)
			}
		}
	}
	q.ever = true
}

// Update incorporates whatever archetypes changed since the last
// flush. The first call does a full init scan; every call after that
// only inspects each pool's new_archetypes and reallocated_archetypes
// — archetypes the query already matched are never rescanned, and no
// slice is reallocated unless the matched set actually grows.
func (q *Query) Update() {
	if !q.ever {
		q.init()
		return
	}
	for _, p := range q.pools {
		for _, id := range p.NewArchetypes() {
			if snap, ok := p.SnapshotByID(id); ok && q.predicate.matches(snap.Mask) {
				q.addMatch(p, id)
			}
		}
		for _, id := range p.ReallocatedArchetypes() {
			if snap, ok := p.SnapshotByID(id); ok && q.predicate.matches(snap.Mask) {
				q.addMatch(p, id)
			}
		}
	}
}

// Len reports how many entities currently match, as of the last
// Update. It re-reads each matched archetype's live member count
// rather than a cached total, so it always reflects the pools' current
// state even between Update calls.
func (q *Query) Len() int {
	n := 0
	for _, m := range q.matched {
		if snap, ok := m.pool.SnapshotByID(m.id); ok {
			n += len(snap.Entities)
		}
	}
	return n
}

// Cursor returns an iterator over the current match set. It fails with
// QueryNotUpdatedError if Update has never run.
func (q *Query) Cursor() (*Cursor, error) {
	if !q.ever {
		return nil, QueryNotUpdatedError{}
	}
	return &Cursor{query: q, entIdx: -1}, nil
}

// Predicate returns the predicate this query was built from.
func (q *Query) Predicate() *QueryPredicate { return q.predicate }
