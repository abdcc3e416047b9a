package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"

	"scenefacts.ai/internal/config"
	persistlog "scenefacts.ai/internal/persistence/log"
	"scenefacts.ai/internal/scene"
	"scenefacts.ai/internal/service"
)

// replay re-describes every recorded DESCRIBE of a fact log with a fresh
// generator and checks the facts come out identical.
func main() {
	var (
		episodePath = flag.String("config", "./configs/episode.yaml", "episode config path")
		factsDir    = flag.String("facts", "", "dir containing facts-*.jsonl.zst")
		fromStep    = flag.Uint64("from_step", 0, "start verifying from step (inclusive, optional)")
		toStep      = flag.Uint64("to_step", 0, "stop at step (inclusive, optional)")
	)
	flag.Parse()

	if *factsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -facts")
		os.Exit(2)
	}

	cfg, err := config.Load(*episodePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load episode config:", err)
		os.Exit(1)
	}
	gen, err := cfg.Generator()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generator:", err)
		os.Exit(1)
	}

	files, err := persistlog.ListFiles(*factsDir, "facts")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list facts:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no facts files found in", *factsDir)
		os.Exit(1)
	}

	r := replayer{
		gen: gen,
		dec: service.DecodeOptions{
			Players:       cfg.Players,
			LocalSelf:     cfg.LocalSelfPoint(),
			RemovedPrefix: cfg.RemovedPrefix,
		},
		from: *fromStep,
		to:   *toStep,
	}
	for _, path := range files {
		if err := persistlog.ReadFacts(path, r.check); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: substrate=%s checked=%d steps agents=%d facts=%d\n", gen.Kind(), r.steps, r.agents, r.facts)
}

type replayer struct {
	gen      *scene.Generator
	dec      service.DecodeOptions
	from, to uint64

	steps, agents, facts int
}

func (r *replayer) check(entry service.FactLogEntry) error {
	if entry.Step < r.from || (r.to != 0 && entry.Step > r.to) {
		return nil
	}
	if entry.Substrate != r.gen.Kind().String() {
		return fmt.Errorf("step %d: substrate mismatch: log=%s config=%s", entry.Step, entry.Substrate, r.gen.Kind())
	}
	batch, err := service.Decode(entry.Request, r.dec)
	if err != nil {
		return fmt.Errorf("step %d: decode: %w", entry.Step, err)
	}
	got, err := r.gen.Describe(context.Background(), batch)
	if err != nil {
		return fmt.Errorf("step %d: %w", entry.Step, err)
	}
	if len(got) != len(entry.Facts) {
		return fmt.Errorf("step %d: agent count mismatch: got=%d want=%d", entry.Step, len(got), len(entry.Facts))
	}
	for id, want := range entry.Facts {
		if !reflect.DeepEqual(got[id], want) {
			return fmt.Errorf("step %d agent %s: facts differ:\n got=%q\nwant=%q", entry.Step, id, got[id], want)
		}
		r.facts += len(want)
	}
	r.steps++
	r.agents += len(got)
	return nil
}
