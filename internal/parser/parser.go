package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/pdfx"
)

// ErrUnsupported is returned when neither the content signature nor the
// filename identifies a format this service can parse.
var ErrUnsupported = errors.New("unsupported document format")

// Parser converts raw document bytes into markdown.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Source, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

var zipSignature = []byte("PK\x03\x04")

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, logger *slog.Logger) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{Logger: logger}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupported, ext)
	}
}

// Detect picks a parser from the content signature first and the filename
// second. A PDF signature wins over any filename; binary formats named by
// their extension must carry their signature.
func Detect(data []byte, filename string, logger *slog.Logger) (Parser, error) {
	if pdfx.HasSignature(data) {
		return &PDFParser{Logger: logger}, nil
	}
	p, err := ForFile(filename, logger)
	if err != nil {
		return nil, err
	}
	switch p.(type) {
	case *PDFParser:
		return nil, fmt.Errorf("%w: %s has no PDF signature", ErrUnsupported, filename)
	case *DOCXParser:
		if !bytes.HasPrefix(data, zipSignature) {
			return nil, fmt.Errorf("%w: %s is not a zip archive", ErrUnsupported, filename)
		}
	}
	return p, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// stem strips the directory and extension from a filename for use as a title.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// joinBlocks joins non-empty markdown blocks with a blank line.
func joinBlocks(blocks []string) string {
	var kept []string
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
