package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	MaxTokens int // Token budget per chunk. Callers keep it within [100, 8000].

	// HeadingFlushRatio: a new heading closes the pending chunk once it holds
	// more than this share of MaxTokens.
	HeadingFlushRatio float64

	// LargeAtomicRatio: an atomic unit above this share of MaxTokens is
	// closed off immediately so nothing else joins its chunk.
	LargeAtomicRatio float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         1000,
		HeadingFlushRatio: 0.2,
		LargeAtomicRatio:  0.8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.HeadingFlushRatio <= 0 {
		c.HeadingFlushRatio = d.HeadingFlushRatio
	}
	if c.LargeAtomicRatio <= 0 {
		c.LargeAtomicRatio = d.LargeAtomicRatio
	}
	return c
}

const unitSeparator = "\n\n"

var separatorChars = utf8.RuneCountInString(unitSeparator)

// Chunk parses markdown into semantic units and groups them into
// token-bounded chunks. Empty or blank input yields no chunks.
func Chunk(markdown string, cfg Config) []doctree.Chunk {
	cfg = cfg.withDefaults()
	g := grouper{cfg: cfg}

	st := foldState{}
	for _, u := range ParseUnits(markdown) {
		st = g.step(st, u)
	}
	drafts := g.finish(st)

	chunks := make([]doctree.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = d
		chunks[i].Position = i
	}
	return chunks
}

// foldState is the value threaded through the grouping fold. Steps never
// mutate a state they receive; they return a new one.
type foldState struct {
	pending []Unit // units of the in-progress chunk
	chars   int    // rune length of the pending units once joined

	heading string // active section heading
	level   int

	emitted []doctree.Chunk
}

func (s foldState) empty() bool { return len(s.pending) == 0 }

// headingsOnly reports whether the pending chunk holds nothing but headings.
// Such a chunk is never closed early: the headings belong to what follows.
func (s foldState) headingsOnly() bool {
	for _, u := range s.pending {
		if u.Kind != UnitHeading {
			return false
		}
	}
	return true
}

func (s foldState) tokens() int { return tokensForChars(s.chars) }

// tokensWith is the estimate of the pending chunk after appending content.
func (s foldState) tokensWith(content string) int {
	n := utf8.RuneCountInString(content)
	if !s.empty() {
		n += s.chars + separatorChars
	}
	return tokensForChars(n)
}

func (s foldState) push(u Unit) foldState {
	n := utf8.RuneCountInString(u.Content)
	if !s.empty() {
		n += separatorChars
	}
	pending := make([]Unit, len(s.pending), len(s.pending)+1)
	copy(pending, s.pending)
	s.pending = append(pending, u)
	s.chars += n
	return s
}

func (s foldState) withSection(text string, level int) foldState {
	s.heading = text
	s.level = level
	return s
}

// flush materializes the pending units as a chunk.
func (s foldState) flush() foldState {
	if s.empty() {
		return s
	}
	emitted := make([]doctree.Chunk, len(s.emitted), len(s.emitted)+1)
	copy(emitted, s.emitted)
	s.emitted = append(emitted, materialize(s.pending, s.heading, s.level))
	s.pending = nil
	s.chars = 0
	return s
}

// grouper holds the fixed policy for one Chunk call.
type grouper struct {
	cfg Config
}

func (g grouper) budget() int { return g.cfg.MaxTokens }

func (g grouper) step(st foldState, u Unit) foldState {
	switch {
	case u.Kind == UnitHeading:
		return g.heading(st, u)
	case u.Kind.Atomic():
		return g.atomic(st, u)
	default:
		return g.paragraph(st, u)
	}
}

func (g grouper) heading(st foldState, u Unit) foldState {
	full := float64(st.tokens()) > g.cfg.HeadingFlushRatio*float64(g.budget())
	if !st.headingsOnly() && (full || u.HeadingLevel <= 2) {
		st = st.flush()
	}
	return st.push(u).withSection(u.HeadingText, u.HeadingLevel)
}

// atomic never splits the unit. An oversized unit gets a chunk of its own.
func (g grouper) atomic(st foldState, u Unit) foldState {
	if !st.headingsOnly() && st.tokensWith(u.Content) > g.budget() {
		st = st.flush()
	}
	st = st.push(u)
	if float64(EstimateTokens(u.Content)) > g.cfg.LargeAtomicRatio*float64(g.budget()) {
		st = st.flush()
	}
	return st
}

func (g grouper) paragraph(st foldState, u Unit) foldState {
	if !st.headingsOnly() && st.tokensWith(u.Content) > g.budget() {
		st = st.flush()
	}
	if st.tokensWith(u.Content) <= g.budget() {
		return st.push(u)
	}

	// Still too big: pack sentences. The last pack stays pending so the
	// following units can join it.
	var pack []string
	for _, sentence := range splitSentences(u.Content, g.budget()) {
		candidate := strings.Join(append(pack[:len(pack):len(pack)], sentence), " ")
		if len(pack) > 0 && st.tokensWith(candidate) > g.budget() {
			st = st.push(Unit{Kind: UnitParagraph, Content: strings.Join(pack, " ")}).flush()
			pack = nil
		}
		pack = append(pack, sentence)
	}
	if len(pack) > 0 {
		st = st.push(Unit{Kind: UnitParagraph, Content: strings.Join(pack, " ")})
	}
	return st
}

// finish flushes what remains. Trailing headings with nothing after them are
// appended to the last chunk instead of forming a heading-only chunk.
func (g grouper) finish(st foldState) []doctree.Chunk {
	if !st.empty() && st.headingsOnly() && len(st.emitted) > 0 {
		last := st.emitted[len(st.emitted)-1]
		parts := []string{last.Content}
		for _, u := range st.pending {
			parts = append(parts, u.Content)
		}
		content := strings.Join(parts, unitSeparator)
		last.Content = content
		last.TokenCount = EstimateTokens(content)
		last.ContentType = Classify(content)

		emitted := make([]doctree.Chunk, len(st.emitted))
		copy(emitted, st.emitted)
		emitted[len(emitted)-1] = last
		return emitted
	}
	return st.flush().emitted
}

// materialize joins units into a chunk. Token count and type are computed on
// the joined text; the section comes from the chunk's first heading, else
// from the context the chunk inherited.
func materialize(units []Unit, heading string, level int) doctree.Chunk {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Content
	}
	content := strings.Join(parts, unitSeparator)

	for _, u := range units {
		if u.Kind == UnitHeading {
			heading, level = u.HeadingText, u.HeadingLevel
			break
		}
	}
	if heading == "" {
		level = 0
	}

	return doctree.Chunk{
		Content:        content,
		ContentType:    Classify(content),
		SectionHeading: heading,
		HeadingLevel:   level,
		TokenCount:     EstimateTokens(content),
	}
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace.
// A sentence that alone exceeds the budget is further cut at whitespace.
func splitSentences(text string, budget int) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	var result []string
	for _, s := range sentences {
		if EstimateTokens(s) <= budget {
			result = append(result, s)
			continue
		}
		result = append(result, splitWords(s, budget)...)
	}
	return result
}

// splitWords packs whitespace-separated words into pieces within budget.
func splitWords(text string, budget int) []string {
	var result []string
	var current strings.Builder
	for _, w := range strings.Fields(text) {
		if current.Len() > 0 && EstimateTokens(current.String()+" "+w) > budget {
			result = append(result, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
