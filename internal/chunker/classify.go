package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

var (
	headingLineRe = regexp.MustCompile(`(?m)^#{1,6} +\S`)
	listLineRe    = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+\.)[ \t]+\S`)
	fenceLineRe   = regexp.MustCompile("(?m)^[ \\t]*```")
)

// predicate pairs a structural test with the type it signals.
type predicate struct {
	kind  doctree.ContentType
	match func(string) bool
}

// predicates is evaluated in order; the order only matters for which type a
// single match reports.
var predicates = []predicate{
	{doctree.ContentTable, hasSeparatorRow},
	{doctree.ContentHeading, headingLineRe.MatchString},
	{doctree.ContentList, listLineRe.MatchString},
	{doctree.ContentCode, fenceLineRe.MatchString},
}

// Classify labels a block of markdown. Exactly one structural feature yields
// that feature's type, none yields TEXT, and more than one yields MIXED.
func Classify(markdown string) doctree.ContentType {
	if strings.TrimSpace(markdown) == "" {
		return doctree.ContentText
	}
	var matched []doctree.ContentType
	for _, p := range predicates {
		if p.match(markdown) {
			matched = append(matched, p.kind)
		}
	}
	return reduceMatches(matched)
}

func reduceMatches(matched []doctree.ContentType) doctree.ContentType {
	switch len(matched) {
	case 0:
		return doctree.ContentText
	case 1:
		return matched[0]
	default:
		return doctree.ContentMixed
	}
}

func hasSeparatorRow(markdown string) bool {
	for _, line := range strings.Split(markdown, "\n") {
		if isSeparatorRow(line) {
			return true
		}
	}
	return false
}

// isSeparatorRow matches a markdown table header separator such as
// "|---|:---:|" or "--- | ---".
func isSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "|") || !strings.Contains(t, "-") {
		return false
	}
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	for _, cell := range strings.Split(t, "|") {
		cell = strings.TrimSpace(cell)
		cell = strings.TrimPrefix(cell, ":")
		cell = strings.TrimSuffix(cell, ":")
		if cell == "" || strings.Trim(cell, "-") != "" {
			return false
		}
	}
	return true
}
