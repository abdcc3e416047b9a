package registry

import "scenefacts.ai/internal/scene/grid"

// Entity is a persistent multi-cell object of the global map (a tree). Its
// identity is topological: the cells it owns never change during an episode,
// whatever they currently hold.
type Entity struct {
	ID       int
	Centroid grid.Point
	Members  []grid.Point
}

// Registry is built once from the full map and is read-only afterwards, so a
// single instance is shared by every concurrent describe call.
type Registry struct {
	entities []Entity
	owner    map[grid.Point]int // cell -> index into entities
}

// Build clusters the full map over symbols and registers one entity per cluster.
func Build(full grid.Grid, symbols grid.SymbolSet) *Registry {
	clusters := grid.Clusters(full, symbols)
	r := &Registry{
		entities: make([]Entity, 0, len(clusters)),
		owner:    map[grid.Point]int{},
	}
	for _, cl := range clusters {
		idx := len(r.entities)
		r.entities = append(r.entities, Entity{ID: cl.ID, Centroid: cl.Centroid, Members: cl.Members})
		for _, p := range cl.Members {
			if _, ok := r.owner[p]; !ok {
				r.owner[p] = idx
			}
		}
	}
	return r
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entities)
}

// Entities returns the registered entities in ascending id order.
func (r *Registry) Entities() []Entity {
	if r == nil {
		return nil
	}
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

func (r *Registry) Entity(id int) (Entity, bool) {
	if r == nil || id < 1 || id > len(r.entities) {
		return Entity{}, false
	}
	return r.entities[id-1], true
}

// Owner returns the entity whose member set contains p.
func (r *Registry) Owner(p grid.Point) (Entity, bool) {
	if r == nil {
		return Entity{}, false
	}
	idx, ok := r.owner[p]
	if !ok {
		return Entity{}, false
	}
	return r.entities[idx], true
}

// Region is a static set of global cells (river bank, field edge) used for
// terrain annotations.
type Region struct {
	cells map[grid.Point]struct{}
}

func BuildRegion(full grid.Grid, symbols grid.SymbolSet) Region {
	reg := Region{cells: map[grid.Point]struct{}{}}
	for _, cl := range grid.Clusters(full, symbols) {
		for _, p := range cl.Members {
			reg.cells[p] = struct{}{}
		}
	}
	return reg
}

func (r Region) Contains(p grid.Point) bool {
	_, ok := r.cells[p]
	return ok
}

func (r Region) Len() int { return len(r.cells) }
