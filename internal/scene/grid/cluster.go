package grid

import "sort"

// SymbolSet is the set of cell characters a clustering pass treats as active.
type SymbolSet map[rune]struct{}

func Symbols(chars string) SymbolSet {
	s := make(SymbolSet, len(chars))
	for _, c := range chars {
		s[c] = struct{}{}
	}
	return s
}

func (s SymbolSet) Has(c rune) bool {
	_, ok := s[c]
	return ok
}

// Cluster is one maximal 4-connected component of active cells.
type Cluster struct {
	ID       int
	Centroid Point
	Members  []Point // row-major
}

var neighbours4 = [4]Point{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}

// Clusters labels the 4-connected components of cells whose character is in
// symbols. Components are numbered from 1 in the order a row-major scan first
// reaches them, so clusters[i].ID == i+1. Centroids are the per-axis member
// means, floored.
func Clusters(g Grid, symbols SymbolSet) []Cluster {
	if g.Empty() || len(symbols) == 0 {
		return nil
	}
	rows, cols := g.Rows(), g.Cols()
	labels := make([]int, rows*cols)
	var (
		out   []Cluster
		queue []Point
	)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if labels[r*cols+c] != 0 || !symbols.Has(g.cells[r][c]) {
				continue
			}
			id := len(out) + 1
			labels[r*cols+c] = id
			queue = append(queue[:0], Point{Row: r, Col: c})
			var members []Point
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				members = append(members, p)
				for _, d := range neighbours4 {
					n := p.Add(d)
					if !g.In(n) || labels[n.Row*cols+n.Col] != 0 || !symbols.Has(g.cells[n.Row][n.Col]) {
						continue
					}
					labels[n.Row*cols+n.Col] = id
					queue = append(queue, n)
				}
			}
			sortRowMajor(members)
			out = append(out, Cluster{ID: id, Centroid: centroid(members), Members: members})
		}
	}
	return out
}

// ClusterByID indexes a Clusters result by id.
func ClusterByID(clusters []Cluster) map[int]Cluster {
	m := make(map[int]Cluster, len(clusters))
	for _, cl := range clusters {
		m[cl.ID] = cl
	}
	return m
}

func sortRowMajor(ps []Point) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
}

// Coordinates are never negative, so integer division is the floor.
func centroid(members []Point) Point {
	var sr, sc int
	for _, p := range members {
		sr += p.Row
		sc += p.Col
	}
	n := len(members)
	return Point{Row: sr / n, Col: sc / n}
}
