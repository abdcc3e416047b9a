package registry

import "scenefacts.ai/internal/scene/grid"

// Category separates what was seen on one entity, e.g. apples and grass of the
// same tree.
type Category string

type Match int

const (
	Unmatched Match = iota
	Matched
	Duplicate
)

type matchKey struct {
	entity   int
	category Category
}

// Resolver maps local clusters to registered entities for a single describe
// call. It remembers every (entity, category) pair it has matched and reports
// later hits on the same pair as duplicates. Not safe for concurrent use; make
// one per call.
type Resolver struct {
	reg  *Registry
	seen map[matchKey]struct{}
}

func (r *Registry) NewResolver() *Resolver {
	return &Resolver{reg: r, seen: map[matchKey]struct{}{}}
}

// Resolve looks up the entity containing rep, the transformed representative
// cell of a local cluster. Clusters that land on no entity are partial views
// and come back Unmatched.
func (rs *Resolver) Resolve(rep grid.Point, category Category) (Entity, Match) {
	e, ok := rs.reg.Owner(rep)
	if !ok {
		return Entity{}, Unmatched
	}
	k := matchKey{entity: e.ID, category: category}
	if _, dup := rs.seen[k]; dup {
		return e, Duplicate
	}
	rs.seen[k] = struct{}{}
	return e, Matched
}
