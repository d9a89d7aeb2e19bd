package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageReader returns the text of every page of a PDF document, in page order.
// A page without extractable text is returned as "".
type PageReader interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// LedongthucReader reads PDF pages with github.com/ledongthuc/pdf.
type LedongthucReader struct{}

// Pages reports a malformed document as an error; the pdf package panics on
// broken cross-reference tables and page trees.
func (LedongthucReader) Pages(ctx context.Context, data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, pageText(r.Page(i)))
	}
	return pages, nil
}

// pageText never fails: broken content streams yield "".
func pageText(p pdf.Page) (text string) {
	if p.V.IsNull() {
		return ""
	}
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	pages, err := e.pages.Pages(ctx, data)
	if err != nil {
		return "", &ExtractionError{Type: TypePDF, Err: err}
	}
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String(), nil
}
