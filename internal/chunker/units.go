package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docchunk/internal/mdtable"
)

// UnitKind identifies the structural element a Unit was parsed from.
type UnitKind int

const (
	UnitHeading UnitKind = iota
	UnitParagraph
	UnitTable
	UnitList
	UnitCode
)

func (k UnitKind) String() string {
	switch k {
	case UnitHeading:
		return "heading"
	case UnitParagraph:
		return "paragraph"
	case UnitTable:
		return "table"
	case UnitList:
		return "list"
	case UnitCode:
		return "code"
	}
	return "unknown"
}

// Atomic reports whether the unit must never be split across chunks.
func (k UnitKind) Atomic() bool {
	return k == UnitTable || k == UnitList || k == UnitCode
}

// Unit is one structural element of a markdown document.
type Unit struct {
	Kind         UnitKind
	Content      string
	HeadingLevel int    // 1-6 for headings, 0 otherwise
	HeadingText  string // Heading text without the leading #s
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6}) +(\S.*?)[ \t#]*$`)
	listItemRe = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d+\.)[ \t]+`)
)

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func isListItem(line string) bool { return listItemRe.MatchString(line) }

func isFence(line string) bool { return strings.HasPrefix(strings.TrimSpace(line), "```") }

func isHeading(line string) bool { return headingRe.MatchString(line) }

// isTableStart reports whether lines[i] opens a markdown table.
func isTableStart(lines []string, i int) bool {
	return i+1 < len(lines) && strings.Contains(lines[i], "|") && isSeparatorRow(lines[i+1])
}

// ParseUnits splits a markdown document into semantic units in document order.
// Blank lines never produce units.
func ParseUnits(markdown string) []Unit {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	lines := strings.Split(markdown, "\n")

	var units []Unit
	for i := 0; i < len(lines); {
		line := lines[i]
		switch {
		case isBlank(line):
			i++
		case isHeading(line):
			m := headingRe.FindStringSubmatch(line)
			units = append(units, Unit{
				Kind:         UnitHeading,
				Content:      strings.TrimSpace(line),
				HeadingLevel: len(m[1]),
				HeadingText:  strings.TrimSpace(m[2]),
			})
			i++
		case strings.TrimSpace(line) == mdtable.StartMarker && isTableStart(lines, i+1):
			var u Unit
			u, i = parseTable(lines, i+1, true)
			units = append(units, u)
		case isTableStart(lines, i):
			var u Unit
			u, i = parseTable(lines, i, false)
			units = append(units, u)
		case isListItem(line):
			var u Unit
			u, i = parseList(lines, i)
			units = append(units, u)
		case isFence(line):
			var u Unit
			u, i = parseCode(lines, i)
			units = append(units, u)
		default:
			var u Unit
			u, i = parseParagraph(lines, i)
			units = append(units, u)
		}
	}
	return units
}

// parseTable consumes the contiguous run of |-bearing lines starting at i.
// When wrapped is set the sentinel lines around the table are kept with it.
func parseTable(lines []string, i int, wrapped bool) (Unit, int) {
	var buf []string
	if wrapped {
		buf = append(buf, mdtable.StartMarker)
	}
	for i < len(lines) && strings.Contains(lines[i], "|") {
		buf = append(buf, strings.TrimRight(lines[i], " \t"))
		i++
	}
	if wrapped && i < len(lines) && strings.TrimSpace(lines[i]) == mdtable.EndMarker {
		buf = append(buf, mdtable.EndMarker)
		i++
	}
	return Unit{Kind: UnitTable, Content: strings.Join(buf, "\n")}, i
}

// parseList consumes list items, tolerating a single blank line only when the
// line after it is another item.
func parseList(lines []string, i int) (Unit, int) {
	var buf []string
	for i < len(lines) {
		switch {
		case isListItem(lines[i]):
			buf = append(buf, strings.TrimRight(lines[i], " \t"))
			i++
			continue
		case isBlank(lines[i]) && i+1 < len(lines) && isListItem(lines[i+1]):
			buf = append(buf, "")
			i++
			continue
		}
		break
	}
	return Unit{Kind: UnitList, Content: strings.Join(buf, "\n")}, i
}

// parseCode consumes a fenced block through its closing fence, or to the end
// of input when the fence is never closed.
func parseCode(lines []string, i int) (Unit, int) {
	buf := []string{lines[i]}
	i++
	for i < len(lines) {
		buf = append(buf, lines[i])
		i++
		if isFence(buf[len(buf)-1]) {
			break
		}
	}
	return Unit{Kind: UnitCode, Content: strings.TrimRight(strings.Join(buf, "\n"), "\n")}, i
}

// parseParagraph consumes contiguous prose lines. The first line is always
// taken so parsing makes progress.
func parseParagraph(lines []string, i int) (Unit, int) {
	buf := []string{strings.TrimSpace(lines[i])}
	i++
	for i < len(lines) {
		line := lines[i]
		if isBlank(line) || isHeading(line) || isListItem(line) || isFence(line) || strings.Contains(line, "|") {
			break
		}
		buf = append(buf, strings.TrimSpace(line))
		i++
	}
	return Unit{Kind: UnitParagraph, Content: strings.Join(buf, "\n")}, i
}
