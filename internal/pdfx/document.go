// Package pdfx reads PDF pages as positioned text runs and ruling
// rectangles, finds tables drawn as grids, and extracts reading-order text
// with table spans marked for removal.
package pdfx

import (
	"bytes"
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned for input that lacks the %PDF- signature.
var ErrNotPDF = errors.New("not a PDF document")

var signature = []byte("%PDF-")

// letterBox is used when a page declares no usable MediaBox.
var letterBox = Rect{Left: 0, Bottom: 0, Right: 612, Top: 792}

// PageData is what one page contributes: positioned glyph runs and drawn
// rectangles, or only plain text when the content stream could not be
// interpreted positionally.
type PageData struct {
	Texts []pdflib.Text
	Rects []pdflib.Rect
	Box   Rect
	Plain string
}

// Pages is a page-addressable document. Page numbers start at 1.
type Pages interface {
	NumPages() int
	Page(pageNr int) (PageData, error)
}

// Document is an opened PDF.
type Document struct {
	r *pdflib.Reader
}

// HasSignature reports whether data starts like a PDF file.
func HasSignature(data []byte) bool {
	return bytes.HasPrefix(data, signature)
}

// Open parses PDF bytes. A file with a valid signature but no objects at all
// opens as a document with zero pages.
func Open(data []byte) (*Document, error) {
	if !HasSignature(data) {
		return nil, ErrNotPDF
	}
	if !bytes.Contains(data, []byte("obj")) {
		return &Document{}, nil
	}
	r, err := newReader(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &Document{r: r}, nil
}

func newReader(data []byte) (r *pdflib.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	return pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
}

// NumPages returns the page count.
func (d *Document) NumPages() (n int) {
	if d == nil || d.r == nil {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return d.r.NumPage()
}

// Page reads one page. The PDF library signals bad content by panicking;
// that is turned into an error, after trying plain-text extraction.
func (d *Document) Page(pageNr int) (pd PageData, err error) {
	if d == nil || d.r == nil {
		return PageData{}, fmt.Errorf("page %d: empty document", pageNr)
	}
	defer func() {
		if p := recover(); p != nil {
			pd, err = PageData{}, fmt.Errorf("page %d: %v", pageNr, p)
		}
	}()

	page := d.r.Page(pageNr)
	if page.V.IsNull() {
		return PageData{}, fmt.Errorf("page %d: missing page object", pageNr)
	}
	pd.Box = mediaBox(page)

	content, cerr := pageContent(page)
	if cerr == nil {
		pd.Texts = content.Text
		pd.Rects = content.Rect
		return pd, nil
	}

	text, perr := page.GetPlainText(nil)
	if perr != nil {
		return PageData{}, fmt.Errorf("page %d: %w", pageNr, cerr)
	}
	pd.Plain = text
	return pd, nil
}

func pageContent(page pdflib.Page) (c pdflib.Content, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("content stream: %v", p)
		}
	}()
	return page.Content(), nil
}

// mediaBox reads the page's MediaBox, looking one level up for an inherited
// box before falling back to US Letter.
func mediaBox(page pdflib.Page) Rect {
	for _, v := range []pdflib.Value{page.V.Key("MediaBox"), page.V.Key("Parent").Key("MediaBox")} {
		if v.Len() == 4 {
			return NewRect(v.Index(0).Float64(), v.Index(1).Float64(), v.Index(2).Float64(), v.Index(3).Float64())
		}
	}
	return letterBox
}
