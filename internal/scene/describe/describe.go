// Package describe turns one agent's partial view into ordered fact sentences.
//
// Each substrate has exactly one Descriptor implementation. The variant is
// picked once, when the generator is built from the full map, through the
// constructor table below; adding a substrate means adding a constructor, not
// branching inside the description code.
package describe

import (
	"errors"
	"fmt"
	"sort"

	"scenefacts.ai/internal/scene/frame"
	"scenefacts.ai/internal/scene/grid"
	"scenefacts.ai/internal/scene/registry"
)

var ErrUnknownSubstrate = errors.New("unknown substrate")

type Kind string

const (
	KindHarvest Kind = "commons_harvest_open"
	KindCleanup Kind = "clean_up"
)

func (k Kind) String() string { return string(k) }

// Symbols is the substrate's character table.
type Symbols struct {
	Apple     rune
	Grass     rune
	Dirt      rune
	RiverBank string
	FieldEdge string
	Self      rune
}

func DefaultSymbols() Symbols {
	return Symbols{
		Apple:     'A',
		Grass:     'G',
		Dirt:      'D',
		RiverBank: "=+",
		FieldEdge: "^T",
		Self:      '#',
	}
}

// View is one agent's local grid together with its validated pose.
type View struct {
	Grid  grid.Grid
	Frame frame.Frame
}

type Descriptor interface {
	Kind() Kind
	// Describe returns the substrate facts for v. It must not keep state
	// between calls.
	Describe(v View) []string
}

// EntitySource is implemented by descriptors that track persistent entities.
type EntitySource interface {
	Entities() []registry.Entity
}

type constructor func(full grid.Grid, sym Symbols) Descriptor

var constructors = map[Kind]constructor{
	KindHarvest: func(full grid.Grid, sym Symbols) Descriptor { return NewHarvest(full, sym) },
	KindCleanup: func(full grid.Grid, sym Symbols) Descriptor { return NewCleanup(full, sym) },
}

// New builds the descriptor for kind from the full map.
func New(kind Kind, full grid.Grid, sym Symbols) (Descriptor, error) {
	build, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubstrate, string(kind))
	}
	return build(full, sym), nil
}

func Kinds() []Kind {
	out := make([]Kind, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func KnownKind(kind Kind) bool {
	_, ok := constructors[kind]
	return ok
}

// Agents reports every other agent visible in v. Agents show up as single
// digits; the viewer's own marker is skipped.
func Agents(v View, self rune) []string {
	var out []string
	v.Grid.Scan(func(p grid.Point, c rune) {
		if c < '0' || c > '9' || c == self {
			return
		}
		out = append(out, agentFact(int(c-'0'), v.Frame.ToGlobal(p)))
	})
	return out
}
