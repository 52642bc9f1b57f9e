package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docchunk/internal/pdfx/pdfxtest"
)

func TestPDFParser_ProseThenTables(t *testing.T) {
	stream := pdfxtest.Text(72, 750, "Inventory report") +
		pdfxtest.Grid(100, 700, 100, 20, 2, 2) +
		pdfxtest.Text(105, 685, "Part") +
		pdfxtest.Text(205, 685, "Stock") +
		pdfxtest.Text(105, 665, "Bolts") +
		pdfxtest.Text(205, 665, "plenty") +
		pdfxtest.Text(72, 600, "closing remarks")

	p := &PDFParser{}
	src, err := p.Parse(bytes.NewReader(pdfxtest.Build(stream)), "inventory.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Title != "inventory" || src.Pages != 1 {
		t.Errorf("title %q pages %d", src.Title, src.Pages)
	}

	prose, tables, ok := strings.Cut(src.Markdown, "\n\n")
	if !ok {
		t.Fatalf("expected prose and tables separated by a blank line, got %q", src.Markdown)
	}
	if prose != "Inventory report closing remarks" {
		t.Errorf("prose = %q", prose)
	}
	if !strings.HasPrefix(tables, "[START_TABLE]") || !strings.Contains(tables, "| Bolts | plenty |") {
		t.Errorf("tables = %q", tables)
	}
}

func TestPDFParser_TrivialDocument(t *testing.T) {
	p := &PDFParser{}
	src, err := p.Parse(strings.NewReader("%PDF-1.4\n%%EOF"), "empty.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Markdown != "" || src.Pages != 0 {
		t.Errorf("expected empty source, got %+v", src)
	}
}

func TestPDFParser_NotPDF(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("hello"), "fake.pdf")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestPDFParser_CorruptWithoutFallback(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("%PDF-1.4\n1 0 obj\n<<"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnsupported) {
		t.Error("a corrupt PDF is not an unsupported format")
	}
}
