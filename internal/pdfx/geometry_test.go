package pdfx

import "testing"

func TestNewRect_Normalizes(t *testing.T) {
	r := NewRect(10, 50, 0, 20)
	if r.Left != 0 || r.Right != 10 || r.Bottom != 20 || r.Top != 50 {
		t.Fatalf("unexpected rect %+v", r)
	}
	if r.Width() != 10 || r.Height() != 30 {
		t.Errorf("size = %vx%v, want 10x30", r.Width(), r.Height())
	}
}

func TestZone_Contains(t *testing.T) {
	z := Zone{Rect: Rect{Left: 100, Top: 200, Right: 300, Bottom: 100}, Margin: DefaultMargin}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{200, 150}, true},
		{"on edge", Point{100, 100}, true},
		{"inside margin left", Point{97.5, 150}, true},
		{"inside margin top", Point{200, 202.9}, true},
		{"outside margin right", Point{303.5, 150}, false},
		{"outside margin bottom", Point{200, 96}, false},
		{"far away", Point{0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := z.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestZone_ZeroMarginIsPlainContainment(t *testing.T) {
	z := Zone{Rect: Rect{Left: 0, Top: 10, Right: 10, Bottom: 0}}
	if z.Contains(Point{10.5, 5}) {
		t.Error("zero margin should not extend the rectangle")
	}
	if !z.Contains(Point{10, 5}) {
		t.Error("edge should be contained")
	}
}
