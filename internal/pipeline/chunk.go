package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/parser"
)

var (
	// ErrInvalidFormat reports input whose signature or filename names no
	// supported format. No partial output accompanies it.
	ErrInvalidFormat = errors.New("invalid input format")

	// ErrProcessing reports any other failure while parsing or grouping.
	ErrProcessing = errors.New("document processing failed")
)

// Chunking strategies. Only StrategyLines changes behavior; any other name
// runs the semantic chunker.
const (
	StrategySemantic = "semantic"
	StrategyLines    = "lines"
)

// Options carries what the caller decides for one document.
type Options struct {
	Chunker           chunker.Config
	Strategy          string
	FallbackPdftotext bool
	Logger            *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Document is a parsed and chunked source.
type Document struct {
	Title  string
	Pages  int
	Chunks []doctree.Chunk
}

// ChunkMarkdown splits markdown into ordered chunks. When the semantic pass
// yields nothing for non-blank input, the line chunker runs instead.
func ChunkMarkdown(markdown string, cfg chunker.Config) []doctree.Chunk {
	chunks := chunker.Chunk(markdown, cfg)
	if len(chunks) == 0 && strings.TrimSpace(markdown) != "" {
		chunks = chunker.ChunkLines(markdown, cfg.MaxTokens)
	}
	return chunks
}

// ChunkDocument parses raw document bytes and chunks the result. A
// structurally empty document yields no chunks and no error.
func ChunkDocument(data []byte, filename string, opts Options) (*Document, error) {
	src, err := Parse(data, filename, opts)
	if err != nil {
		return nil, err
	}
	chunks, err := ChunkSource(src, opts)
	if err != nil {
		return nil, err
	}
	return &Document{Title: src.Title, Pages: src.Pages, Chunks: chunks}, nil
}

// Parse renders raw document bytes to markdown.
func Parse(data []byte, filename string, opts Options) (src *doctree.Source, err error) {
	defer recoverProcessing(&err)

	p, err := parser.Detect(data, filename, opts.logger())
	if err != nil {
		return nil, classify(err)
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = opts.FallbackPdftotext
	}
	src, err = p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, classify(err)
	}
	return src, nil
}

// ChunkSource chunks a parsed source with the configured strategy.
func ChunkSource(src *doctree.Source, opts Options) (chunks []doctree.Chunk, err error) {
	defer recoverProcessing(&err)

	if opts.Strategy == StrategyLines {
		return chunker.ChunkLines(src.Markdown, opts.Chunker.MaxTokens), nil
	}
	return ChunkMarkdown(src.Markdown, opts.Chunker), nil
}

func classify(err error) error {
	if errors.Is(err, parser.ErrUnsupported) {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return fmt.Errorf("%w: %v", ErrProcessing, err)
}

// recoverProcessing turns a panic in third-party parsing code into ErrProcessing.
func recoverProcessing(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: panic: %v", ErrProcessing, r)
	}
}
