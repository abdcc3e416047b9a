package describe

import (
	"scenefacts.ai/internal/scene/grid"
	"scenefacts.ai/internal/scene/registry"
)

// Cleanup describes the clean-up substrate: loose apples, river dirt and the
// fixed river-bank / apple-field-edge terrain.
type Cleanup struct {
	sym       Symbols
	riverBank registry.Region
	fieldEdge registry.Region
}

func NewCleanup(full grid.Grid, sym Symbols) *Cleanup {
	return &Cleanup{
		sym:       sym,
		riverBank: registry.BuildRegion(full, grid.Symbols(sym.RiverBank)),
		fieldEdge: registry.BuildRegion(full, grid.Symbols(sym.FieldEdge)),
	}
}

func (c *Cleanup) Kind() Kind { return KindCleanup }

// Describe makes one row-major pass. A cell can yield an item fact and
// terrain facts at once; categories are never merged.
func (c *Cleanup) Describe(v View) []string {
	var out []string
	v.Grid.Scan(func(p grid.Point, ch rune) {
		pos := v.Frame.ToGlobal(p)
		switch ch {
		case c.sym.Apple:
			out = append(out, appleFact(pos))
		case c.sym.Dirt:
			out = append(out, dirtFact(pos))
		}
		if c.riverBank.Contains(pos) {
			out = append(out, riverBankFact(pos))
		}
		if c.fieldEdge.Contains(pos) {
			out = append(out, fieldEdgeFact(pos))
		}
	})
	return out
}
