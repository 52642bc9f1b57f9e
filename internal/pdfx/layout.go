package pdfx

import (
	"math"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// lineTolerance is how far apart two baselines may be and still count as
// the same visual line.
const lineTolerance = 2.0

// run is a word-like sequence of adjacent glyphs; Origin is its first glyph.
type run struct {
	Origin Point
	Text   string
	gap    bool // preceded by visible whitespace on its line
}

// groupLines orders glyphs top to bottom and left to right, grouping those
// whose baselines fall within lineTolerance.
func groupLines(texts []pdflib.Text) [][]pdflib.Text {
	glyphs := make([]pdflib.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var lines [][]pdflib.Text
	var current []pdflib.Text
	var baseline float64
	for _, g := range glyphs {
		if len(current) > 0 && math.Abs(g.Y-baseline) > lineTolerance {
			lines = append(lines, current)
			current = nil
		}
		if len(current) == 0 {
			baseline = g.Y
		}
		current = append(current, g)
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
	}
	return lines
}

// needsSpace reports whether the horizontal gap between prev and next is
// wide enough to read as a word break.
func needsSpace(prev, next pdflib.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	size := prev.FontSize
	if size <= 0 {
		size = 10
	}
	return next.X-(prev.X+prev.W) > 0.25*size
}

// runs splits one line into word-like runs.
func runs(line []pdflib.Text) []run {
	var out []run
	var b strings.Builder
	var cur run
	flush := func() {
		if b.Len() > 0 {
			cur.Text = b.String()
			out = append(out, cur)
		}
		b.Reset()
	}
	for i, g := range line {
		if i == 0 || needsSpace(line[i-1], g) || strings.TrimSpace(line[i-1].S) == "" {
			flush()
			cur = run{Origin: Point{X: g.X, Y: g.Y}, gap: i > 0}
		}
		if strings.TrimSpace(g.S) == "" {
			continue
		}
		if b.Len() == 0 {
			cur.Origin = Point{X: g.X, Y: g.Y}
		}
		b.WriteString(g.S)
	}
	flush()
	return out
}
