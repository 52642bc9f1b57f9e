package pdfx

import (
	"math"
	"sort"

	pdflib "github.com/ledongthuc/pdf"
)

// GridDetector finds ruled tables from the rectangles drawn on a page.
// Thin rectangles act as ruling lines; larger ones contribute their four
// edges, which covers cell-border and boxed-cell layouts alike.
type GridDetector struct {
	// Tolerance for considering rulings aligned or touching (in points)
	AlignmentTolerance float64

	// Maximum thickness of a rectangle treated as a single ruling line
	MaxRuleThickness float64

	// Minimum ruling length to consider (in points)
	MinLineLength float64

	// Minimum distinct positions per axis to form a grid
	MinAlignedLines int
}

// NewGridDetector creates a grid detector with default settings.
func NewGridDetector() *GridDetector {
	return &GridDetector{
		AlignmentTolerance: 3.0,
		MaxRuleThickness:   2.0,
		MinLineLength:      10.0,
		MinAlignedLines:    2,
	}
}

// Grid is a detected table: its bounds plus the ruling positions that split
// it into rows (Y, descending) and columns (X, ascending).
type Grid struct {
	Bounds Rect
	Rows   []float64
	Cols   []float64
}

// NumRows returns the number of cell rows.
func (g Grid) NumRows() int { return max(len(g.Rows)-1, 0) }

// NumCols returns the number of cell columns.
func (g Grid) NumCols() int { return max(len(g.Cols)-1, 0) }

// Cell returns the row and column containing p, or false when p lies outside
// every cell.
func (g Grid) Cell(p Point) (row, col int, ok bool) {
	row = -1
	for i := 0; i+1 < len(g.Rows); i++ {
		if p.Y <= g.Rows[i] && p.Y > g.Rows[i+1] {
			row = i
			break
		}
	}
	col = -1
	for j := 0; j+1 < len(g.Cols); j++ {
		if p.X >= g.Cols[j] && p.X < g.Cols[j+1] {
			col = j
			break
		}
	}
	return row, col, row >= 0 && col >= 0
}

type segment struct {
	horizontal bool
	pos        float64 // Y for horizontal, X for vertical
	lo, hi     float64 // extent along the segment
}

// Detect returns the grids found among rects, ordered top to bottom and then
// left to right. box is the page's media box; rectangles framing most of the
// page are ignored as decoration.
func (gd *GridDetector) Detect(rects []pdflib.Rect, box Rect) []Grid {
	segs := gd.segments(rects, box)
	if len(segs) == 0 {
		return nil
	}

	parent := make([]int, len(segs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if gd.connected(segs[i], segs[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	components := make(map[int][]segment)
	var roots []int
	for i, s := range segs {
		r := find(i)
		if _, seen := components[r]; !seen {
			roots = append(roots, r)
		}
		components[r] = append(components[r], s)
	}

	var grids []Grid
	for _, r := range roots {
		if g, ok := gd.grid(components[r]); ok {
			grids = append(grids, g)
		}
	}
	sort.SliceStable(grids, func(i, j int) bool {
		if math.Abs(grids[i].Bounds.Top-grids[j].Bounds.Top) > gd.AlignmentTolerance {
			return grids[i].Bounds.Top > grids[j].Bounds.Top
		}
		return grids[i].Bounds.Left < grids[j].Bounds.Left
	})
	return grids
}

func (gd *GridDetector) segments(rects []pdflib.Rect, box Rect) []segment {
	var segs []segment
	for _, pr := range rects {
		r := NewRect(pr.Min.X, pr.Min.Y, pr.Max.X, pr.Max.Y)
		w, h := r.Width(), r.Height()
		if w >= 0.8*box.Width() && h >= 0.5*box.Height() {
			continue
		}
		switch {
		case h <= gd.MaxRuleThickness && w >= gd.MinLineLength:
			segs = append(segs, segment{horizontal: true, pos: (r.Top + r.Bottom) / 2, lo: r.Left, hi: r.Right})
		case w <= gd.MaxRuleThickness && h >= gd.MinLineLength:
			segs = append(segs, segment{horizontal: false, pos: (r.Left + r.Right) / 2, lo: r.Bottom, hi: r.Top})
		case w >= gd.MinLineLength && h >= gd.MinLineLength:
			segs = append(segs,
				segment{horizontal: true, pos: r.Top, lo: r.Left, hi: r.Right},
				segment{horizontal: true, pos: r.Bottom, lo: r.Left, hi: r.Right},
				segment{horizontal: false, pos: r.Left, lo: r.Bottom, hi: r.Top},
				segment{horizontal: false, pos: r.Right, lo: r.Bottom, hi: r.Top},
			)
		}
	}
	return segs
}

// connected reports whether two segments cross or touch.
func (gd *GridDetector) connected(a, b segment) bool {
	tol := gd.AlignmentTolerance
	if a.horizontal == b.horizontal {
		return math.Abs(a.pos-b.pos) <= tol && a.lo <= b.hi+tol && b.lo <= a.hi+tol
	}
	return b.pos >= a.lo-tol && b.pos <= a.hi+tol && a.pos >= b.lo-tol && a.pos <= b.hi+tol
}

// grid turns one connected set of segments into a Grid if it has enough
// distinct rulings on both axes.
func (gd *GridDetector) grid(segs []segment) (Grid, bool) {
	var hs, vs []float64
	for _, s := range segs {
		if s.horizontal {
			hs = append(hs, s.pos)
		} else {
			vs = append(vs, s.pos)
		}
	}
	rows := gd.cluster(hs)
	cols := gd.cluster(vs)
	if len(rows) < gd.MinAlignedLines || len(cols) < gd.MinAlignedLines {
		return Grid{}, false
	}

	// Rows run top to bottom in PDF space.
	sort.Sort(sort.Reverse(sort.Float64Slice(rows)))
	return Grid{
		Bounds: Rect{Left: cols[0], Right: cols[len(cols)-1], Top: rows[0], Bottom: rows[len(rows)-1]},
		Rows:   rows,
		Cols:   cols,
	}, true
}

// cluster merges positions within tolerance into their running average and
// returns them ascending.
func (gd *GridDetector) cluster(positions []float64) []float64 {
	if len(positions) == 0 {
		return nil
	}
	sorted := append([]float64(nil), positions...)
	sort.Float64s(sorted)

	var out []float64
	sum, n := sorted[0], 1
	for _, p := range sorted[1:] {
		if p-sum/float64(n) <= gd.AlignmentTolerance {
			sum += p
			n++
			continue
		}
		out = append(out, sum/float64(n))
		sum, n = p, 1
	}
	return append(out, sum/float64(n))
}
