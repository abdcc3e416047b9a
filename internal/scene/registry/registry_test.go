package registry

import (
	"testing"

	"scenefacts.ai/internal/scene/grid"
)

const orchard = `
AG----
GA--GA
------
---AAA
`

func TestBuild_RegistersOneEntityPerCluster(t *testing.T) {
	r := Build(grid.MustParse(orchard), grid.Symbols("AG"))
	if r.Len() != 3 {
		t.Fatalf("expected 3 trees, got %d", r.Len())
	}
	e, ok := r.Entity(3)
	if !ok {
		t.Fatalf("tree 3 missing")
	}
	if e.Centroid != (grid.Point{Row: 3, Col: 4}) || len(e.Members) != 3 {
		t.Fatalf("unexpected tree 3: %+v", e)
	}
	if _, ok := r.Entity(4); ok {
		t.Fatalf("unexpected tree 4")
	}
	ids := []int{}
	for _, e := range r.Entities() {
		ids = append(ids, e.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("entities not in id order: %v", ids)
	}
}

func TestOwner_IdentityIsTopological(t *testing.T) {
	r := Build(grid.MustParse(orchard), grid.Symbols("AG"))
	// (1,4) held grass when the registry was built; it still belongs to tree 2
	// no matter what the cell holds now.
	e, ok := r.Owner(grid.Point{Row: 1, Col: 4})
	if !ok || e.ID != 2 {
		t.Fatalf("expected tree 2, got %+v ok=%v", e, ok)
	}
	if _, ok := r.Owner(grid.Point{Row: 2, Col: 2}); ok {
		t.Fatalf("empty cell should have no owner")
	}
}

func TestResolver_DedupPerCategory(t *testing.T) {
	r := Build(grid.MustParse(orchard), grid.Symbols("AG"))
	rs := r.NewResolver()

	if e, m := rs.Resolve(grid.Point{Row: 0, Col: 0}, "A"); m != Matched || e.ID != 1 {
		t.Fatalf("first apple cluster: got %+v %v", e, m)
	}
	if _, m := rs.Resolve(grid.Point{Row: 1, Col: 1}, "A"); m != Duplicate {
		t.Fatalf("second apple cluster on tree 1 should be a duplicate, got %v", m)
	}
	if e, m := rs.Resolve(grid.Point{Row: 1, Col: 0}, "G"); m != Matched || e.ID != 1 {
		t.Fatalf("grass cluster on tree 1 should match once, got %+v %v", e, m)
	}
	if _, m := rs.Resolve(grid.Point{Row: 2, Col: 2}, "A"); m != Unmatched {
		t.Fatalf("expected unmatched, got %v", m)
	}

	// A fresh resolver starts with an empty scratch set.
	if _, m := r.NewResolver().Resolve(grid.Point{Row: 1, Col: 1}, "A"); m != Matched {
		t.Fatalf("new resolver should match again, got %v", m)
	}
}

func TestRegion_Contains(t *testing.T) {
	g := grid.MustParse("==--\n+-^T\n----")
	bank := BuildRegion(g, grid.Symbols("=+"))
	edge := BuildRegion(g, grid.Symbols("^T"))
	if bank.Len() != 3 || edge.Len() != 2 {
		t.Fatalf("unexpected sizes bank=%d edge=%d", bank.Len(), edge.Len())
	}
	if !bank.Contains(grid.Point{Row: 1, Col: 0}) || bank.Contains(grid.Point{Row: 1, Col: 2}) {
		t.Fatalf("bank membership wrong")
	}
	if !edge.Contains(grid.Point{Row: 1, Col: 3}) {
		t.Fatalf("edge membership wrong")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	if r.Len() != 0 || r.Entities() != nil {
		t.Fatalf("nil registry should be empty")
	}
	if _, ok := r.Owner(grid.Point{}); ok {
		t.Fatalf("nil registry should own nothing")
	}
}
