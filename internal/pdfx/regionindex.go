package pdfx

import "github.com/tidwall/rtree"

// RegionIndex answers "is this point inside a table on this page" with an
// R-tree per page, keyed by each region's inflated bounds.
type RegionIndex struct {
	pages map[int]*rtree.RTreeG[Zone]
}

// NewRegionIndex indexes regions with the given containment margin.
func NewRegionIndex(regions []TableRegion, margin float64) *RegionIndex {
	idx := &RegionIndex{pages: make(map[int]*rtree.RTreeG[Zone])}
	for _, r := range regions {
		tr, ok := idx.pages[r.Page]
		if !ok {
			tr = &rtree.RTreeG[Zone]{}
			idx.pages[r.Page] = tr
		}
		z := Zone{Rect: r.Bounds, Margin: margin}
		b := z.Bounds()
		tr.Insert([2]float64{b.Left, b.Bottom}, [2]float64{b.Right, b.Top}, z)
	}
	return idx
}

// Contains reports whether p lies within any indexed zone on pageNr.
func (idx *RegionIndex) Contains(pageNr int, p Point) bool {
	if idx == nil {
		return false
	}
	tr, ok := idx.pages[pageNr]
	if !ok {
		return false
	}
	pt := [2]float64{p.X, p.Y}
	found := false
	tr.Search(pt, pt, func(_, _ [2]float64, z Zone) bool {
		found = z.Contains(p)
		return !found
	})
	return found
}

// Len returns the number of indexed zones.
func (idx *RegionIndex) Len() int {
	n := 0
	for _, tr := range idx.pages {
		n += tr.Len()
	}
	return n
}
