// Package pdfxtest builds small, valid PDF files for tests.
package pdfxtest

import (
	"fmt"
	"strings"
)

// Build returns a PDF with one page per content stream. Every page is US
// Letter and has a monospaced WinAnsi font named /F1 with 600-unit widths.
func Build(streams ...string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	n := 3 + 2*len(streams)
	offsets := make([]int, n+1)

	kids := make([]string, len(streams))
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(streams))

	widths := strings.TrimSpace(strings.Repeat("600 ", 126-32+1))
	offsets[3] = b.Len()
	fmt.Fprintf(&b, "3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>\nendobj\n", widths)

	for i, stream := range streams {
		page, content := 4+2*i, 5+2*i
		offsets[page] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", page, content)

		offsets[content] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", content, len(stream), stream)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", n+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)
	return []byte(b.String())
}

// Text returns a content stream fragment drawing s at (x, y) in 12pt.
func Text(x, y float64, s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return fmt.Sprintf("BT\n/F1 12 Tf\n1 0 0 1 %g %g Tm\n(%s) Tj\nET\n", x, y, s)
}

// Rect returns a content stream fragment stroking a rectangle.
func Rect(x, y, w, h float64) string {
	return fmt.Sprintf("%g %g %g %g re S\n", x, y, w, h)
}

// Grid returns the rectangles of a ruled table with its top-left corner at
// (x, top), made of rows x cols cells of the given size.
func Grid(x, top, cellW, cellH float64, rows, cols int) string {
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b.WriteString(Rect(x+float64(c)*cellW, top-float64(r+1)*cellH, cellW, cellH))
		}
	}
	return b.String()
}
