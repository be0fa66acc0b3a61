// Package doctext extracts excerpt text from fetched report documents.
package doctext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	defaultMaxPages = 2
	defaultMaxChars = 4000
)

// Options controls PDF text extraction.
type Options struct {
	MaxPages int
	MaxChars int
}

// FromPDF extracts plain text from the first pages of a PDF document. The
// excerpt is what classifiers see, so the opening pages matter most and the
// rest of the document is skipped.
func FromPDF(data []byte, opts Options) (string, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages > opts.MaxPages {
		pages = opts.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Partial extraction is still useful; skip unreadable pages.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
		if b.Len() >= opts.MaxChars {
			break
		}
	}

	out := collapse(b.String())
	if out == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	if len(out) > opts.MaxChars {
		out = out[:opts.MaxChars]
	}
	return out, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
