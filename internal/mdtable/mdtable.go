// Package mdtable renders table rows as sentinel-wrapped markdown blocks.
package mdtable

import (
	"regexp"
	"strings"
)

// Sentinel lines that wrap every rendered table.
const (
	StartMarker = "[START_TABLE]"
	EndMarker   = "[END_TABLE]"
)

// pageNumberRe matches cells that are most likely page numbers bleeding into
// a detected grid.
var pageNumberRe = regexp.MustCompile(`^\d{1,3}$`)

// Render turns table rows into a sentinel-wrapped markdown table, keeping
// every cell value. Tables with fewer than two rows render as "".
func Render(rows [][]string) string {
	return render(rows, CleanCell)
}

// RenderDetected is Render for tables recovered from page geometry, where
// short numeric cells are usually page numbers caught inside the grid and
// are blanked.
func RenderDetected(rows [][]string) string {
	return render(rows, CleanDetectedCell)
}

func render(rows [][]string, clean func(string) string) string {
	if len(rows) < 2 {
		return ""
	}

	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StartMarker)
	sb.WriteByte('\n')
	for i, row := range rows {
		writeRow(&sb, row, cols, clean)
		if i == 0 {
			sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
		}
	}
	sb.WriteString(EndMarker)
	sb.WriteByte('\n')
	return sb.String()
}

func writeRow(sb *strings.Builder, row []string, cols int, clean func(string) string) {
	sb.WriteByte('|')
	for c := 0; c < cols; c++ {
		cell := ""
		if c < len(row) {
			cell = clean(row[c])
		}
		sb.WriteString(" " + cell + " |")
	}
	sb.WriteByte('\n')
}

// CleanCell flattens newlines and escapes pipes.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.TrimSpace(s)
}

// CleanDetectedCell is CleanCell that also blanks a purely 1-3 digit cell to
// a single space.
func CleanDetectedCell(s string) string {
	s = CleanCell(s)
	if pageNumberRe.MatchString(s) {
		return " "
	}
	return s
}
