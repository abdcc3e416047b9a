package frame

import (
	"errors"
	"testing"

	"scenefacts.ai/internal/scene/grid"
)

func TestToGlobal_OrientationFixtures(t *testing.T) {
	globalSelf := grid.Point{Row: 10, Col: 5}
	cases := []struct {
		o         Orientation
		local     grid.Point
		localSelf grid.Point
		want      grid.Point
	}{
		{North, grid.Point{Row: 5, Col: 3}, grid.Point{Row: 0, Col: 3}, grid.Point{Row: 15, Col: 5}},
		{East, grid.Point{Row: 0, Col: 0}, grid.Point{Row: 0, Col: 5}, grid.Point{Row: 5, Col: 5}},
		{South, grid.Point{Row: 2, Col: 3}, grid.Point{Row: 7, Col: 3}, grid.Point{Row: 15, Col: 5}},
		{West, grid.Point{Row: 7, Col: 9}, grid.Point{Row: 7, Col: 4}, grid.Point{Row: 5, Col: 5}},
	}
	for _, c := range cases {
		got, err := ToGlobal(c.local, c.localSelf, globalSelf, c.o)
		if err != nil {
			t.Fatalf("%s: %v", c.o, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.o, got, c.want)
		}
	}
}

func TestToGlobal_InvalidOrientation(t *testing.T) {
	for _, o := range []Orientation{-1, 4, 17} {
		if _, err := ToGlobal(grid.Point{}, grid.Point{}, grid.Point{}, o); !errors.Is(err, ErrInvalidOrientation) {
			t.Fatalf("orientation %d: expected ErrInvalidOrientation, got %v", int(o), err)
		}
		if _, err := New(grid.Point{}, grid.Point{}, o); !errors.Is(err, ErrInvalidOrientation) {
			t.Fatalf("New(%d): expected ErrInvalidOrientation, got %v", int(o), err)
		}
	}
}

func TestToGlobal_DifferenceDependsOnlyOnLocalDifference(t *testing.T) {
	localSelf := grid.Point{Row: 9, Col: 5}
	globalSelf := grid.Point{Row: 12, Col: 30}
	pairs := [][2]grid.Point{
		{{Row: 0, Col: 0}, {Row: 3, Col: 4}},
		{{Row: 10, Col: 2}, {Row: 13, Col: 6}},
		{{Row: 5, Col: 9}, {Row: 8, Col: 13}},
	}
	for o := North; o <= West; o++ {
		var want grid.Point
		for i, pr := range pairs {
			a, _ := ToGlobal(pr[0], localSelf, globalSelf, o)
			b, _ := ToGlobal(pr[1], localSelf, globalSelf, o)
			d := a.Sub(b)
			if i == 0 {
				want = d
				continue
			}
			if d != want {
				t.Fatalf("%s: difference %v differs from %v", o, d, want)
			}
		}
	}
}

func TestToGlobal_SelfMapsToGlobalSelf(t *testing.T) {
	self := grid.Point{Row: 9, Col: 5}
	g := grid.Point{Row: 4, Col: 7}
	for o := North; o <= West; o++ {
		got, _ := ToGlobal(self, self, g, o)
		if got != g {
			t.Fatalf("%s: got %v want %v", o, got, g)
		}
	}
}

func TestToGlobal_FourQuarterTurnsCompose(t *testing.T) {
	// Applying East four times to a displacement returns it unchanged.
	d := grid.Point{Row: 2, Col: -3}
	p := d
	for i := 0; i < 4; i++ {
		p, _ = ToGlobal(p, grid.Point{}, grid.Point{}, East)
	}
	if p != d {
		t.Fatalf("got %v want %v", p, d)
	}
	south, _ := ToGlobal(d, grid.Point{}, grid.Point{}, South)
	east, _ := ToGlobal(d, grid.Point{}, grid.Point{}, East)
	east2, _ := ToGlobal(east, grid.Point{}, grid.Point{}, East)
	if south != east2 {
		t.Fatalf("South %v != East∘East %v", south, east2)
	}
}

func TestFrame_ToGlobal(t *testing.T) {
	f, err := New(grid.Point{Row: 9, Col: 5}, grid.Point{Row: 8, Col: 19}, East)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := f.ToGlobal(grid.Point{Row: 6, Col: 0}); got != (grid.Point{Row: 3, Col: 22}) {
		t.Fatalf("got %v", got)
	}
}
