package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"scenefacts.ai/internal/scene"
	"scenefacts.ai/internal/scene/describe"
	"scenefacts.ai/internal/scene/grid"
)

// Config describes one episode: which substrate runs, on which map, and how
// agents and cells are spelled in the observations.
type Config struct {
	Substrate string   `yaml:"substrate"`
	Players   []string `yaml:"players,omitempty"`

	// Map is the ascii map inline; MapFile is read when Map is empty and is
	// resolved relative to the config file.
	Map     string `yaml:"map,omitempty"`
	MapFile string `yaml:"map_file,omitempty"`

	LocalSelf     [2]int      `yaml:"local_self"`
	RemovedPrefix string      `yaml:"removed_prefix"`
	Symbols       SymbolTable `yaml:"symbols"`

	dir string
}

type SymbolTable struct {
	Apple     string `yaml:"apple"`
	Grass     string `yaml:"grass"`
	Dirt      string `yaml:"dirt"`
	RiverBank string `yaml:"river_bank"`
	FieldEdge string `yaml:"field_edge"`
	Self      string `yaml:"self"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("episode.yaml: %w", err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("episode.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	sym := describe.DefaultSymbols()
	return Config{
		Substrate:     string(describe.KindHarvest),
		LocalSelf:     [2]int{9, 5},
		RemovedPrefix: scene.RemovedPrefix,
		Symbols: SymbolTable{
			Apple:     string(sym.Apple),
			Grass:     string(sym.Grass),
			Dirt:      string(sym.Dirt),
			RiverBank: sym.RiverBank,
			FieldEdge: sym.FieldEdge,
			Self:      string(sym.Self),
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Substrate = strings.TrimSpace(c.Substrate)
	c.MapFile = strings.TrimSpace(c.MapFile)
	for i := range c.Players {
		c.Players[i] = strings.TrimSpace(c.Players[i])
	}
	def := Defaults().Symbols
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&c.Symbols.Apple, def.Apple)
	fill(&c.Symbols.Grass, def.Grass)
	fill(&c.Symbols.Dirt, def.Dirt)
	fill(&c.Symbols.RiverBank, def.RiverBank)
	fill(&c.Symbols.FieldEdge, def.FieldEdge)
	fill(&c.Symbols.Self, def.Self)
}

func (c Config) Validate() error {
	c.Normalize()
	if !describe.KnownKind(describe.Kind(c.Substrate)) {
		return fmt.Errorf("substrate %q: %w (known: %v)", c.Substrate, describe.ErrUnknownSubstrate, describe.Kinds())
	}
	if c.LocalSelf[0] < 0 || c.LocalSelf[1] < 0 {
		return fmt.Errorf("local_self must be non-negative, got %v", c.LocalSelf)
	}
	for name, v := range map[string]string{
		"apple": c.Symbols.Apple,
		"grass": c.Symbols.Grass,
		"dirt":  c.Symbols.Dirt,
		"self":  c.Symbols.Self,
	} {
		if utf8.RuneCountInString(v) != 1 {
			return fmt.Errorf("symbols.%s must be a single character, got %q", name, v)
		}
	}
	if c.Symbols.Apple == c.Symbols.Grass {
		return fmt.Errorf("symbols.apple and symbols.grass must differ")
	}
	seen := map[string]bool{}
	for i, p := range c.Players {
		if p == "" {
			return fmt.Errorf("players[%d] must not be empty", i)
		}
		if seen[p] {
			return fmt.Errorf("duplicate player name: %s", p)
		}
		seen[p] = true
	}
	return nil
}

func (c Config) Kind() describe.Kind { return describe.Kind(c.Substrate) }

func (c Config) LocalSelfPoint() grid.Point { return grid.FromArray(c.LocalSelf) }

func (c Config) DescribeSymbols() describe.Symbols {
	first := func(s string) rune {
		r, _ := utf8.DecodeRuneInString(s)
		return r
	}
	return describe.Symbols{
		Apple:     first(c.Symbols.Apple),
		Grass:     first(c.Symbols.Grass),
		Dirt:      first(c.Symbols.Dirt),
		RiverBank: c.Symbols.RiverBank,
		FieldEdge: c.Symbols.FieldEdge,
		Self:      first(c.Symbols.Self),
	}
}

// LoadMap returns the episode's full map, inline or from map_file.
func (c Config) LoadMap() (grid.Grid, error) {
	text := c.Map
	if strings.TrimSpace(text) == "" {
		if c.MapFile == "" {
			return grid.Grid{}, fmt.Errorf("episode has neither map nor map_file")
		}
		p := c.MapFile
		if !filepath.IsAbs(p) && c.dir != "" {
			p = filepath.Join(c.dir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return grid.Grid{}, err
		}
		text = string(b)
	}
	g, err := grid.Parse(text)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("map: %w", err)
	}
	return g, nil
}

// Generator builds the episode's scene generator from the configured map.
func (c Config) Generator(opts ...scene.Option) (*scene.Generator, error) {
	full, err := c.LoadMap()
	if err != nil {
		return nil, err
	}
	opts = append([]scene.Option{
		scene.WithSymbols(c.DescribeSymbols()),
		scene.WithRemovedPrefix(c.RemovedPrefix),
	}, opts...)
	return scene.New(full, c.Kind(), opts...)
}
