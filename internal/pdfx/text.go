package pdfx

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/docchunk/internal/normalize"
)

// ExtractText renders the document in reading order. Runs whose origin falls
// inside a table region (within DefaultMargin) are delimited by the garbage
// markers so the normalizer can drop text already captured as markdown.
// Lines are separated by a newline and pages by a blank line. Pages that fail
// to load are logged and skipped.
func ExtractText(doc Pages, tables Tables, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	idx := NewRegionIndex(tables.Regions(), DefaultMargin)

	var b strings.Builder
	inside := false
	for pageNr := 1; pageNr <= doc.NumPages(); pageNr++ {
		pd, err := doc.Page(pageNr)
		if err != nil {
			logger.Debug("skipping page for text extraction", "page", pageNr, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if len(pd.Texts) == 0 {
			if inside {
				b.WriteString(normalize.GarbageEnd)
				inside = false
			}
			b.WriteString(strings.TrimSpace(pd.Plain))
			continue
		}

		for i, line := range groupLines(pd.Texts) {
			if i > 0 {
				b.WriteByte('\n')
			}
			for j, r := range runs(line) {
				if j > 0 && r.gap {
					b.WriteByte(' ')
				}
				if in := idx.Contains(pageNr, r.Origin); in != inside {
					b.WriteString(marker(in))
					inside = in
				}
				b.WriteString(r.Text)
			}
		}
	}
	if inside {
		b.WriteString(normalize.GarbageEnd)
	}
	return b.String()
}

func marker(opening bool) string {
	if opening {
		return normalize.GarbageStart
	}
	return normalize.GarbageEnd
}
