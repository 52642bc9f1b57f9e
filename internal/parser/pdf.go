package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/normalize"
	"github.com/dgallion1/docchunk/internal/pdfx"
)

// PDFParser handles PDF files. Tables found as ruled grids are rendered as
// markdown and appended after the prose, whose copy of the table text is
// removed. When FallbackPdftotext is set and the Go reader cannot open the
// file, pdftotext is tried instead.
type PDFParser struct {
	Logger            *slog.Logger
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := pdfx.Open(data)
	if errors.Is(err, pdfx.ErrNotPDF) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err != nil {
		if !p.FallbackPdftotext {
			return nil, err
		}
		logger.Warn("pdf reader failed, trying pdftotext", "file", filename, "error", err)
		text, ferr := extractPdftotext(data)
		if ferr != nil {
			return nil, fmt.Errorf("extract pdf text: %w", errors.Join(err, ferr))
		}
		return &doctree.Source{Title: stem(filename), Markdown: normalize.Text(text)}, nil
	}

	tables := pdfx.ExtractTables(doc, logger)
	prose := normalize.Text(pdfx.ExtractText(doc, tables, logger))

	return &doctree.Source{
		Title:    stem(filename),
		Markdown: joinBlocks([]string{prose, tables.Markdown}),
		Pages:    doc.NumPages(),
	}, nil
}

func extractPdftotext(data []byte) (string, error) {
	// pdftotext reads from a path, so write to a temp file.
	tmp, err := os.CreateTemp("", "docchunk-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-layout", tmpPath, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	// Form feeds separate pages.
	return strings.ReplaceAll(string(out), "\f", "\n\n"), nil
}
