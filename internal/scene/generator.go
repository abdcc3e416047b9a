// Package scene is the sensor-to-symbol layer: it turns per-agent grid
// snapshots into ordered fact sentences anchored to global map positions.
package scene

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"scenefacts.ai/internal/scene/describe"
	"scenefacts.ai/internal/scene/frame"
	"scenefacts.ai/internal/scene/grid"
	"scenefacts.ai/internal/scene/registry"
)

var ErrUnknownSubstrate = describe.ErrUnknownSubstrate

// RemovedPrefix starts the text the simulator puts in place of a grid for an
// agent that was taken out of the game.
const RemovedPrefix = "There are no observations: You were taken "

// AgentObservation is one agent's input for one step.
type AgentObservation struct {
	Grid        grid.Grid
	LocalSelf   grid.Point
	GlobalSelf  grid.Point
	Orientation frame.Orientation

	Removed bool
	// RemovedMessage overrides the default removal wording.
	RemovedMessage string
}

type Option func(*Generator)

func WithSymbols(sym describe.Symbols) Option {
	return func(g *Generator) { g.sym = sym }
}

func WithRemovedPrefix(prefix string) Option {
	return func(g *Generator) { g.removedPrefix = prefix }
}

// WithParallelism caps how many agents are described at once (<=0: GOMAXPROCS).
func WithParallelism(n int) Option {
	return func(g *Generator) { g.parallelism = n }
}

// Generator holds the per-episode registry and the substrate descriptor. It
// is immutable after New and safe for concurrent Describe calls.
type Generator struct {
	kind          describe.Kind
	desc          describe.Descriptor
	sym           describe.Symbols
	removedPrefix string
	parallelism   int
}

// New indexes the full map for kind and selects its descriptor.
func New(full grid.Grid, kind describe.Kind, opts ...Option) (*Generator, error) {
	g := &Generator{
		kind:          kind,
		sym:           describe.DefaultSymbols(),
		removedPrefix: RemovedPrefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	d, err := describe.New(kind, full, g.sym)
	if err != nil {
		return nil, err
	}
	g.desc = d
	if g.parallelism <= 0 {
		g.parallelism = runtime.GOMAXPROCS(0)
	}
	return g, nil
}

func (g *Generator) Kind() describe.Kind { return g.kind }

// Entities lists the persistent entities of the episode; nil for substrates
// without any.
func (g *Generator) Entities() []registry.Entity {
	if src, ok := g.desc.(describe.EntitySource); ok {
		return src.Entities()
	}
	return nil
}

// DescribeAgent returns the ordered facts for one observation.
func (g *Generator) DescribeAgent(obs AgentObservation) ([]string, error) {
	if obs.Removed {
		return []string{describe.RemovedFact(obs.RemovedMessage, obs.GlobalSelf)}, nil
	}
	if g.removedPrefix != "" && obs.Grid.Rows() == 1 {
		if text := obs.Grid.String(); strings.HasPrefix(text, g.removedPrefix) {
			return []string{describe.RemovedFact(text, obs.GlobalSelf)}, nil
		}
	}
	f, err := frame.New(obs.LocalSelf, obs.GlobalSelf, obs.Orientation)
	if err != nil {
		return nil, err
	}
	v := describe.View{Grid: obs.Grid, Frame: f}
	facts := g.desc.Describe(v)
	facts = append(facts, describe.Agents(v, g.sym.Self)...)
	if facts == nil {
		facts = []string{}
	}
	return facts, nil
}

// Describe runs DescribeAgent for every agent of batch concurrently. Results
// are keyed by agent id. When several agents fail, the error of the first
// agent id in sorted order is returned, so failures are reproducible too.
func (g *Generator) Describe(ctx context.Context, batch map[string]AgentObservation) (map[string][]string, error) {
	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	facts := make([][]string, len(ids))
	errs := make([]error, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			facts[i], errs[i] = g.DescribeAgent(batch[id])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(ids))
	for i, id := range ids {
		if errs[i] != nil {
			return nil, fmt.Errorf("agent %s: %w", id, errs[i])
		}
		out[id] = facts[i]
	}
	return out, nil
}
