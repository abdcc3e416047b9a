package grid

import (
	"fmt"
	"strings"
)

// Point is a (row, col) cell coordinate. Local grids and the global map use the same type.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Point) Add(o Point) Point { return Point{Row: p.Row + o.Row, Col: p.Col + o.Col} }
func (p Point) Sub(o Point) Point { return Point{Row: p.Row - o.Row, Col: p.Col - o.Col} }

// String renders the point the way facts quote positions: "[row, col]".
func (p Point) String() string { return fmt.Sprintf("[%d, %d]", p.Row, p.Col) }

func (p Point) ToArray() [2]int { return [2]int{p.Row, p.Col} }

func FromArray(a [2]int) Point { return Point{Row: a[0], Col: a[1]} }

// FormatError reports a ragged grid: every row must have the width of the first one.
type FormatError struct {
	Row  int
	Want int
	Got  int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("grid: row %d has %d cells, want %d", e.Row, e.Got, e.Want)
}

// Grid is an immutable rectangular character grid.
type Grid struct {
	cells [][]rune
	cols  int
}

// Parse splits newline-separated text into a grid. Blank lines wrapping the
// text (as in multi-line map literals) are dropped; anything else is kept as is.
func Parse(text string) (Grid, error) {
	text = strings.Trim(text, "\n")
	if text == "" {
		return Grid{}, nil
	}
	return FromRows(strings.Split(text, "\n"))
}

func MustParse(text string) Grid {
	g, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return g
}

func FromRows(rows []string) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cells := make([][]rune, len(rows))
	for i, row := range rows {
		cells[i] = []rune(row)
	}
	cols := len(cells[0])
	for i := 1; i < len(cells); i++ {
		if len(cells[i]) != cols {
			return Grid{}, &FormatError{Row: i, Want: cols, Got: len(cells[i])}
		}
	}
	return Grid{cells: cells, cols: cols}, nil
}

func (g Grid) Rows() int { return len(g.cells) }
func (g Grid) Cols() int { return g.cols }

func (g Grid) Empty() bool { return len(g.cells) == 0 || g.cols == 0 }

func (g Grid) In(p Point) bool {
	return p.Row >= 0 && p.Row < len(g.cells) && p.Col >= 0 && p.Col < g.cols
}

// At returns the cell at p, or 0 outside the grid.
func (g Grid) At(p Point) rune {
	if !g.In(p) {
		return 0
	}
	return g.cells[p.Row][p.Col]
}

// Scan visits every cell in row-major order.
func (g Grid) Scan(fn func(p Point, c rune)) {
	for r, row := range g.cells {
		for c, ch := range row {
			fn(Point{Row: r, Col: c}, ch)
		}
	}
}

func (g Grid) String() string {
	var b strings.Builder
	for i, row := range g.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}
