package pdfx

import (
	"log/slog"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docchunk/internal/mdtable"
)

// TableRegion is one detected table on a page. Page starts at 1.
type TableRegion struct {
	Page     int
	Bounds   Rect
	Rows     [][]string
	Markdown string
}

// Tables is the result of scanning a document for tables.
type Tables struct {
	// Pages holds the regions of page n at index n-1.
	Pages [][]TableRegion

	// Markdown is every rendered table, in page order, separated by a blank line.
	Markdown string
}

// Regions returns all regions in page order.
func (t Tables) Regions() []TableRegion {
	var all []TableRegion
	for _, page := range t.Pages {
		all = append(all, page...)
	}
	return all
}

// OnPage returns the regions detected on page pageNr.
func (t Tables) OnPage(pageNr int) []TableRegion {
	if pageNr < 1 || pageNr > len(t.Pages) {
		return nil
	}
	return t.Pages[pageNr-1]
}

// ExtractTables detects ruled tables page by page. Pages that fail to load
// are logged and contribute no regions. A grid whose cell text renders to
// nothing (fewer than two rows) is not reported.
func ExtractTables(doc Pages, logger *slog.Logger) Tables {
	if logger == nil {
		logger = slog.Default()
	}
	n := doc.NumPages()
	out := Tables{Pages: make([][]TableRegion, n)}
	detector := NewGridDetector()

	var blocks []string
	for pageNr := 1; pageNr <= n; pageNr++ {
		pd, err := doc.Page(pageNr)
		if err != nil {
			logger.Debug("skipping page for table detection", "page", pageNr, "error", err)
			continue
		}
		for _, g := range detector.Detect(pd.Rects, pd.Box) {
			rows := cellRows(g, pd)
			md := mdtable.RenderDetected(rows)
			if md == "" {
				continue
			}
			out.Pages[pageNr-1] = append(out.Pages[pageNr-1], TableRegion{
				Page:     pageNr,
				Bounds:   g.Bounds,
				Rows:     rows,
				Markdown: md,
			})
			blocks = append(blocks, md)
		}
	}
	out.Markdown = strings.Join(blocks, "\n\n")
	return out
}

// cellRows assigns each line of glyphs to grid cells by glyph origin and
// returns the non-empty rows.
func cellRows(g Grid, pd PageData) [][]string {
	cells := make([][][]string, g.NumRows())
	for i := range cells {
		cells[i] = make([][]string, g.NumCols())
	}

	for _, line := range groupLines(pd.Texts) {
		// Split the line at cell boundaries, keeping glyph order.
		parts := make(map[[2]int]*strings.Builder)
		var order [][2]int
		var prev [2]int
		var prevGlyph pdflib.Text
		havePrev := false
		for _, glyph := range line {
			row, col, ok := g.Cell(Point{X: glyph.X, Y: glyph.Y})
			if !ok {
				havePrev = false
				continue
			}
			key := [2]int{row, col}
			b, seen := parts[key]
			if !seen {
				b = &strings.Builder{}
				parts[key] = b
				order = append(order, key)
			} else if havePrev && prev == key && needsSpace(prevGlyph, glyph) {
				b.WriteByte(' ')
			}
			b.WriteString(glyph.S)
			prev, prevGlyph, havePrev = key, glyph, true
		}
		for _, key := range order {
			text := strings.TrimSpace(parts[key].String())
			if text != "" {
				cells[key[0]][key[1]] = append(cells[key[0]][key[1]], text)
			}
		}
	}

	var rows [][]string
	for _, r := range cells {
		row := make([]string, len(r))
		empty := true
		for j, lines := range r {
			row[j] = strings.Join(lines, "\n")
			if row[j] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}
