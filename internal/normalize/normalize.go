// Package normalize repairs text extracted from PDFs before chunking.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Markers delimiting spans that are already represented elsewhere (table
// text rendered separately as markdown) and must be dropped.
const (
	GarbageStart = "[[LIXO_INICIO]]"
	GarbageEnd   = "[[LIXO_FIM]]"
)

var (
	garbageSpanRe = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(GarbageStart) + `.*?` + regexp.QuoteMeta(GarbageEnd))
	wsRunRe       = regexp.MustCompile(`\s{2,}`)
)

// maxRejoinPasses bounds the letter-rejoin fixed point loop.
const maxRejoinPasses = 64

// Text applies the repair passes in order: drop marked spans, rejoin
// letter-spaced words, join soft line breaks, collapse whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	s = garbageSpanRe.ReplaceAllString(s, "")
	s = RejoinLetters(s)
	s = JoinSoftBreaks(s)
	s = strings.TrimSpace(wsRunRe.ReplaceAllString(s, " "))

	// Collapsing can line up single letters that newlines kept apart.
	return RejoinLetters(s)
}

// RejoinLetters removes single spaces sitting between two one-letter tokens,
// e.g. "C a m p" -> "Camp", repeating until nothing changes.
func RejoinLetters(s string) string {
	for pass := 0; pass < maxRejoinPasses; pass++ {
		next := rejoinOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// rejoinOnce finds every collapsible space in s and removes them together.
func rejoinOnce(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))
	changed := false
	for i, r := range runes {
		if r == ' ' && loneLetterBefore(runes, i) && loneLetterAfter(runes, i) {
			changed = true
			continue
		}
		sb.WriteRune(r)
	}
	if !changed {
		return s
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// loneLetterBefore: runes[i-1] is a letter that starts its token.
func loneLetterBefore(runes []rune, i int) bool {
	if i < 1 || !unicode.IsLetter(runes[i-1]) {
		return false
	}
	return i < 2 || !isWordRune(runes[i-2])
}

// loneLetterAfter: runes[i+1] is a letter that ends its token.
func loneLetterAfter(runes []rune, i int) bool {
	if i+1 >= len(runes) || !unicode.IsLetter(runes[i+1]) {
		return false
	}
	return i+2 >= len(runes) || !isWordRune(runes[i+2])
}

// JoinSoftBreaks merges lines split mid-sentence. A line without terminal
// punctuation followed by a lowercase line is a continuation; any other
// single newline outside a blank-line separator also becomes a space.
func JoinSoftBreaks(s string) string {
	lines := strings.Split(s, "\n")
	var sb strings.Builder
	sb.Grow(len(s))
	for i, line := range lines {
		sb.WriteString(line)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		switch {
		case isContinuation(line, next):
			sb.WriteByte(' ')
		case line != "" && next != "":
			sb.WriteByte(' ')
		default:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func isContinuation(line, next string) bool {
	trimmed := strings.TrimRight(line, " \t")
	if trimmed == "" || next == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if strings.ContainsRune(".!?:;", last) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(next)
	return unicode.IsLower(first)
}
