package describe

import (
	"sort"

	"scenefacts.ai/internal/scene/grid"
	"scenefacts.ai/internal/scene/registry"
)

// Harvest describes the resource-harvest substrate: apples and grass that
// belong to persistent trees.
type Harvest struct {
	sym   Symbols
	local grid.SymbolSet
	trees *registry.Registry
}

func NewHarvest(full grid.Grid, sym Symbols) *Harvest {
	set := grid.Symbols(string([]rune{sym.Apple, sym.Grass}))
	return &Harvest{sym: sym, local: set, trees: registry.Build(full, set)}
}

func (h *Harvest) Kind() Kind { return KindHarvest }

func (h *Harvest) Entities() []registry.Entity { return h.trees.Entities() }

type treeSighting struct {
	facts  []string
	apples int
	grass  int
}

// Describe clusters the visible apple/grass cells, attributes each cluster to
// the tree owning its transformed centroid, and reports per tree (ascending
// id) every observed cell followed by one summary. A tree is reported at most
// once per category, so its apple and grass clusters do not double count it.
func (h *Harvest) Describe(v View) []string {
	clusters := grid.Clusters(v.Grid, h.local)
	if len(clusters) == 0 {
		return nil
	}
	rs := h.trees.NewResolver()
	seen := map[int]*treeSighting{}
	for _, cl := range clusters {
		category := registry.Category(string(v.Grid.At(cl.Members[0])))
		tree, m := rs.Resolve(v.Frame.ToGlobal(cl.Centroid), category)
		if m != registry.Matched {
			continue
		}
		s := seen[tree.ID]
		if s == nil {
			s = &treeSighting{}
			seen[tree.ID] = s
		}
		for _, p := range cl.Members {
			pos := v.Frame.ToGlobal(p)
			switch v.Grid.At(p) {
			case h.sym.Apple:
				s.facts = append(s.facts, appleOnTreeFact(pos, tree.ID))
				s.apples++
			case h.sym.Grass:
				s.facts = append(s.facts, grassOnTreeFact(pos, tree.ID))
				s.grass++
			}
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []string
	for _, id := range ids {
		s := seen[id]
		if s.apples == 0 && s.grass == 0 {
			continue
		}
		tree, _ := h.trees.Entity(id)
		out = append(out, s.facts...)
		out = append(out, treeSummaryFact(id, tree.Centroid, s.apples, s.grass))
	}
	return out
}
