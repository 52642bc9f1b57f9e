package pdfx

import "math"

// DefaultMargin is the tolerance, in PDF units, applied around table regions
// when deciding whether a text run falls inside one.
const DefaultMargin = 3.0

// Point is a position in PDF user space (y grows upward).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in PDF user space, so Top >= Bottom.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// NewRect builds a Rect from any two opposite corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		Left:   math.Min(x0, x1),
		Right:  math.Max(x0, x1),
		Bottom: math.Min(y0, y1),
		Top:    math.Max(y0, y1),
	}
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Inflate grows the rectangle by m on every side.
func (r Rect) Inflate(m float64) Rect {
	return Rect{Left: r.Left - m, Top: r.Top + m, Right: r.Right + m, Bottom: r.Bottom - m}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Bottom && p.Y <= r.Top
}

// Zone is a rectangle together with the tolerance used to test membership.
type Zone struct {
	Rect   Rect
	Margin float64
}

// Bounds is the inflated rectangle a point must fall in.
func (z Zone) Bounds() Rect { return z.Rect.Inflate(z.Margin) }

// Contains reports whether p falls within the rectangle grown by the margin.
func (z Zone) Contains(p Point) bool { return z.Bounds().Contains(p) }
