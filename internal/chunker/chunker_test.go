package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

func cfg(maxTokens int) Config {
	c := DefaultConfig()
	c.MaxTokens = maxTokens
	return c
}

func TestChunk_HeadingParagraphTableFitTogether(t *testing.T) {
	md := "# Title\n\nShort paragraph.\n\n| A | B |\n|---|---|\n| 1 | 2 |\n"
	chunks := Chunk(md, cfg(2000))

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ContentType != doctree.ContentMixed {
		t.Errorf("content type = %s, want MIXED", c.ContentType)
	}
	if c.Position != 0 {
		t.Errorf("position = %d, want 0", c.Position)
	}
	if c.SectionHeading != "Title" || c.HeadingLevel != 1 {
		t.Errorf("section = %q/%d, want Title/1", c.SectionHeading, c.HeadingLevel)
	}
	want := "# Title\n\nShort paragraph.\n\n| A | B |\n|---|---|\n| 1 | 2 |"
	if c.Content != want {
		t.Errorf("content = %q, want %q", c.Content, want)
	}
	if c.TokenCount != EstimateTokens(want) {
		t.Errorf("token count = %d, want %d", c.TokenCount, EstimateTokens(want))
	}
}

func TestChunk_LongParagraphSplitsAtSentences(t *testing.T) {
	var sentences []string
	for i := 0; utf8.RuneCountInString(strings.Join(sentences, " ")) < 4000; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d talks about the harvest and the weather this season.", i))
	}
	paragraph := strings.Join(sentences, " ")

	chunks := Chunk(paragraph, cfg(500))
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > 500 {
			t.Errorf("chunk %d has %d tokens, over budget", c.Position, c.TokenCount)
		}
		if c.ContentType != doctree.ContentText {
			t.Errorf("chunk %d type = %s, want TEXT", c.Position, c.ContentType)
		}
	}

	var parts []string
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	if got := strings.Join(parts, " "); got != paragraph {
		t.Error("chunks do not reproduce the paragraph's sentences in order")
	}
}

// tableOfChars builds a 30-line table (header, separator, 28 rows) whose
// joined length is exactly n runes.
func tableOfChars(t *testing.T, n int) string {
	t.Helper()
	lines := []string{"| A | B |", "|---|---|"}
	row := func(width int) string { return "| a | " + strings.Repeat("x", width-8) + " |" }
	width := (n - 18 - 29) / 28
	for i := 0; i < 27; i++ {
		lines = append(lines, row(width))
	}
	used := 0
	for _, l := range lines {
		used += len(l) + 1
	}
	lines = append(lines, row(n-used))
	table := strings.Join(lines, "\n")
	if utf8.RuneCountInString(table) != n {
		t.Fatalf("fixture length = %d, want %d", utf8.RuneCountInString(table), n)
	}
	return table
}

func TestChunk_OversizedTableStaysWhole(t *testing.T) {
	table := tableOfChars(t, 4800)
	chunks := Chunk(table, cfg(500))

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.TokenCount != 1200 {
		t.Errorf("token count = %d, want 1200", c.TokenCount)
	}
	if c.ContentType != doctree.ContentTable {
		t.Errorf("content type = %s, want TABLE", c.ContentType)
	}
	if c.Content != table {
		t.Error("table content was altered")
	}
}

func TestChunk_LargeTableClosesChunk(t *testing.T) {
	table := tableOfChars(t, 1800) // 450 tokens, above 80% of 500
	md := "Intro text.\n\n" + table + "\n\nTrailing text."
	chunks := Chunk(md, cfg(500))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, table) {
		t.Error("table should end the first chunk")
	}
	if chunks[1].Content != "Trailing text." {
		t.Errorf("second chunk = %q", chunks[1].Content)
	}
}

func TestChunk_AtomicFlushesWhenOverBudget(t *testing.T) {
	para := strings.Repeat("Filler words here. ", 60) // ~285 tokens
	list := strings.TrimSuffix(strings.Repeat("- an item in the list with some words\n", 30), "\n")
	chunks := Chunk(para+"\n\n"+list, cfg(500))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Content != list {
		t.Error("list should form its own chunk intact")
	}
	if chunks[1].ContentType != doctree.ContentList {
		t.Errorf("list chunk type = %s, want LIST", chunks[1].ContentType)
	}
}

func TestChunk_TopLevelHeadingsStartNewChunks(t *testing.T) {
	md := "# One\n\nAlpha.\n\n## Two\n\nBeta.\n\n### Three\n\nGamma."
	chunks := Chunk(md, cfg(1000))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "# One\n\nAlpha." {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	if chunks[1].Content != "## Two\n\nBeta.\n\n### Three\n\nGamma." {
		t.Errorf("chunk 1 = %q", chunks[1].Content)
	}
	if chunks[1].SectionHeading != "Two" || chunks[1].HeadingLevel != 2 {
		t.Errorf("chunk 1 section = %q/%d", chunks[1].SectionHeading, chunks[1].HeadingLevel)
	}
}

func TestChunk_SubheadingFlushesFullChunk(t *testing.T) {
	body := strings.Repeat("Words in the body. ", 50) // ~237 tokens, over 20% of 1000
	md := "### First\n\n" + body + "\n\n### Second\n\nTail."
	chunks := Chunk(md, cfg(1000))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].SectionHeading != "Second" || chunks[1].HeadingLevel != 3 {
		t.Errorf("chunk 1 section = %q/%d", chunks[1].SectionHeading, chunks[1].HeadingLevel)
	}
}

func TestChunk_InheritsSectionContext(t *testing.T) {
	para := strings.Repeat("Lorem ipsum dolor sit amet. ", 20)
	md := "## Section\n\n" + para + "\n\n" + para + "\n\n" + para
	chunks := Chunk(md, cfg(300))

	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks[1:] {
		if c.SectionHeading != "Section" || c.HeadingLevel != 2 {
			t.Errorf("chunk %d section = %q/%d, want inherited Section/2", c.Position, c.SectionHeading, c.HeadingLevel)
		}
		if strings.HasPrefix(c.Content, "## ") {
			t.Errorf("chunk %d should not repeat the heading", c.Position)
		}
	}
}

func TestChunk_NoHeadingMeansLevelZero(t *testing.T) {
	chunks := Chunk("Just a paragraph.", cfg(500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].SectionHeading != "" || chunks[0].HeadingLevel != 0 {
		t.Errorf("section = %q/%d, want empty/0", chunks[0].SectionHeading, chunks[0].HeadingLevel)
	}
}

func TestChunk_TrailingHeadingMergesIntoLastChunk(t *testing.T) {
	chunks := Chunk("# Intro\n\nBody text.\n\n# Appendix", cfg(500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "# Intro\n\nBody text.\n\n# Appendix"
	if chunks[0].Content != want {
		t.Errorf("content = %q, want %q", chunks[0].Content, want)
	}
	if chunks[0].TokenCount != EstimateTokens(want) {
		t.Errorf("token count not recomputed: %d", chunks[0].TokenCount)
	}
	if chunks[0].SectionHeading != "Intro" {
		t.Errorf("section = %q, want Intro", chunks[0].SectionHeading)
	}
}

func TestChunk_HeadingOnlyDocument(t *testing.T) {
	chunks := Chunk("# Alone", cfg(500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ContentType != doctree.ContentHeading {
		t.Errorf("type = %s, want HEADING", chunks[0].ContentType)
	}
}

func TestChunk_StackedHeadingsAttachToContent(t *testing.T) {
	chunks := Chunk("# Part\n\n## Chapter\n\nText under the chapter.", cfg(500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].SectionHeading != "Part" || chunks[0].HeadingLevel != 1 {
		t.Errorf("section = %q/%d, want Part/1", chunks[0].SectionHeading, chunks[0].HeadingLevel)
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		if got := Chunk(in, cfg(500)); len(got) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", in, len(got))
		}
	}
}

func TestChunk_ZeroConfigUsesDefaults(t *testing.T) {
	chunks := Chunk("Hello there.", Config{})
	if len(chunks) != 1 || chunks[0].TokenCount != 3 {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
}

func TestChunk_OversizedSentenceSplitsAtWords(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 1000)) // one sentence, ~1250 tokens
	chunks := Chunk(long, cfg(200))
	if len(chunks) < 5 {
		t.Fatalf("expected word-level splitting, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > 200 {
			t.Errorf("chunk %d has %d tokens", c.Position, c.TokenCount)
		}
	}
}

// mixedDocument exercises every unit kind across several sections.
func mixedDocument() string {
	var b strings.Builder
	for s := 0; s < 6; s++ {
		fmt.Fprintf(&b, "## Section %d\n\n", s)
		for p := 0; p < 3; p++ {
			b.WriteString(strings.Repeat(fmt.Sprintf("Paragraph %d of section %d has content. ", p, s), 8+s*4))
			b.WriteString("\n\n")
		}
		b.WriteString("| Key | Value |\n|---|---|\n")
		for r := 0; r < 3+s*5; r++ {
			fmt.Fprintf(&b, "| k%d | value %d |\n", r, r)
		}
		b.WriteString("\n")
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, "- item %d of section %d\n", i, s)
		}
		b.WriteString("\n```go\nfunc main() {}\n```\n\n")
		fmt.Fprintf(&b, "### Sub %d\n\nClosing words for section %d.\n\n", s, s)
	}
	return b.String()
}

func TestChunk_PositionsAreDense(t *testing.T) {
	for _, budget := range []int{100, 250, 1000, 8000} {
		chunks := Chunk(mixedDocument(), cfg(budget))
		if len(chunks) == 0 {
			t.Fatalf("budget %d: no chunks", budget)
		}
		for i, c := range chunks {
			if c.Position != i {
				t.Fatalf("budget %d: chunk %d has position %d", budget, i, c.Position)
			}
		}
	}
}

func TestChunk_AtomicUnitsNeverSplit(t *testing.T) {
	md := mixedDocument()
	var atomic []Unit
	for _, u := range ParseUnits(md) {
		if u.Kind.Atomic() {
			atomic = append(atomic, u)
		}
	}
	if len(atomic) == 0 {
		t.Fatal("fixture has no atomic units")
	}

	for _, budget := range []int{100, 250, 1000} {
		chunks := Chunk(md, cfg(budget))
		for _, u := range atomic {
			found := false
			for _, c := range chunks {
				if strings.Contains(c.Content, u.Content) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("budget %d: %s unit split across chunks:\n%s", budget, u.Kind, u.Content)
			}
		}
		for _, c := range chunks {
			if c.ContentType == doctree.ContentTable && strings.Count(c.Content, "|---|---|") != 1 {
				t.Errorf("budget %d: TABLE chunk %d has %d separator rows", budget, c.Position, strings.Count(c.Content, "|---|---|"))
			}
		}
	}
}

func TestChunk_BudgetRespectedOutsideAtomicOverflow(t *testing.T) {
	md := mixedDocument()
	var atomic []string
	for _, u := range ParseUnits(md) {
		if u.Kind.Atomic() {
			atomic = append(atomic, u.Content)
		}
	}

	for _, budget := range []int{100, 250, 1000} {
		for _, c := range Chunk(md, cfg(budget)) {
			if c.TokenCount != EstimateTokens(c.Content) {
				t.Errorf("budget %d: chunk %d token count %d != estimate %d", budget, c.Position, c.TokenCount, EstimateTokens(c.Content))
			}
			if c.TokenCount <= budget {
				continue
			}
			holdsAtomic := false
			for _, a := range atomic {
				if strings.Contains(c.Content, a) {
					holdsAtomic = true
					break
				}
			}
			// Small slack covers headings that attach to the following content.
			if !holdsAtomic && c.TokenCount > budget+budget/10 {
				t.Errorf("budget %d: chunk %d has %d tokens", budget, c.Position, c.TokenCount)
			}
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	md := mixedDocument()
	a := Chunk(md, cfg(300))
	b := Chunk(md, cfg(300))
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_HeadingNeedsSpaceAndText(t *testing.T) {
	tests := []struct {
		md      string
		heading string
		kind    doctree.ContentType
	}{
		{"#\tTitle\n\nbody text.", "", doctree.ContentText},
		{"# \n\nbody text.", "", doctree.ContentText},
		{"#  Title\n\nbody text.", "Title", doctree.ContentHeading},
	}
	for _, tt := range tests {
		chunks := Chunk(tt.md, DefaultConfig())
		if len(chunks) != 1 {
			t.Fatalf("%q: expected 1 chunk, got %d", tt.md, len(chunks))
		}
		c := chunks[0]
		if c.SectionHeading != tt.heading || c.ContentType != tt.kind {
			t.Errorf("%q: heading %q type %s, want %q %s", tt.md, c.SectionHeading, c.ContentType, tt.heading, tt.kind)
		}
	}
}
