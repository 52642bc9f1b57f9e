package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/mdtable"
)

// ChunkLines is the last-resort splitter: it scans lines, closing a chunk
// when the next block would exceed maxTokens. A contiguous run of table
// lines, with its sentinel lines, is one block and is never split.
func ChunkLines(markdown string, maxTokens int) []doctree.Chunk {
	if maxTokens <= 0 {
		maxTokens = DefaultConfig().MaxTokens
	}
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")

	var chunks []doctree.Chunk
	var current []string
	chars := 0 // rune length of current once joined

	emit := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		current = nil
		chars = 0
		if text == "" {
			return
		}
		chunks = append(chunks, doctree.Chunk{
			Content:     text,
			ContentType: Classify(text),
			TokenCount:  EstimateTokens(text),
			Position:    len(chunks),
		})
	}

	for i := 0; i < len(lines); {
		block := []string{lines[i]}
		i++
		if isTableLine(block[0]) {
			for i < len(lines) && isTableLine(lines[i]) {
				block = append(block, lines[i])
				i++
			}
		}

		blockChars := utf8.RuneCountInString(strings.Join(block, "\n"))
		if len(current) > 0 && tokensForChars(chars+1+blockChars) > maxTokens {
			emit()
		}
		if len(current) > 0 {
			chars++
		}
		current = append(current, block...)
		chars += blockChars
	}
	emit()

	return chunks
}

// isTableLine reports whether line belongs to a table block, counting the
// sentinel lines that wrap rendered tables.
func isTableLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "|") || t == mdtable.StartMarker || t == mdtable.EndMarker
}
