package pdfx

import (
	"errors"

	pdflib "github.com/ledongthuc/pdf"
)

type fakePages struct {
	pages []PageData
	errs  map[int]error
}

func (f *fakePages) NumPages() int { return len(f.pages) }

func (f *fakePages) Page(n int) (PageData, error) {
	if err := f.errs[n]; err != nil {
		return PageData{}, err
	}
	if n < 1 || n > len(f.pages) {
		return PageData{}, errors.New("no such page")
	}
	return f.pages[n-1], nil
}

// glyphs lays s out one glyph per rune in a 12pt monospaced font.
func glyphs(x, y float64, s string) []pdflib.Text {
	var out []pdflib.Text
	for i, r := range []rune(s) {
		out = append(out, pdflib.Text{
			Font:     "Courier",
			FontSize: 12,
			X:        x + float64(i)*7.2,
			Y:        y,
			W:        7.2,
			S:        string(r),
		})
	}
	return out
}

// cellRects draws a rows x cols grid of boxed cells with top-left at (x, top).
func cellRects(x, top, w, h float64, rows, cols int) []pdflib.Rect {
	var out []pdflib.Rect
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 := x + float64(c)*w
			y0 := top - float64(r+1)*h
			out = append(out, pdflib.Rect{
				Min: pdflib.Point{X: x0, Y: y0},
				Max: pdflib.Point{X: x0 + w, Y: y0 + h},
			})
		}
	}
	return out
}

func concat(parts ...[]pdflib.Text) []pdflib.Text {
	var out []pdflib.Text
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// tablePage is a page with prose above and below a 2x2 ruled table.
func tablePage() PageData {
	return PageData{
		Box: letterBox,
		Texts: concat(
			glyphs(72, 750, "Intro"),
			glyphs(105, 685, "Name"),
			glyphs(205, 685, "Qty"),
			glyphs(105, 665, "Bolts"),
			glyphs(205, 665, "twelve"),
			glyphs(72, 600, "After"),
		),
		Rects: cellRects(100, 700, 100, 20, 2, 2),
	}
}
