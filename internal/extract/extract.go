// Package extract turns uploaded document bytes into plain text.
//
// Supported declared types are PDF (per-page text), zipped LaTeX sources and
// HTML. The declared MIME type is trusted; content is never sniffed.
package extract

import (
	"context"
	"fmt"
	"mime"
	"os"
	"strings"
)

// Declared MIME types understood by the extractor.
const (
	TypePDF  = "application/pdf"
	TypeZip  = "application/zip"
	TypeHTML = "text/html"
)

// typeAliases maps alternative declarations onto the canonical type.
var typeAliases = map[string]string{
	"application/x-zip-compressed": TypeZip,
	"application/x-zip":            TypeZip,
	"application/xhtml+xml":        TypeHTML,
}

// SupportedTypes lists the canonical MIME types Extract accepts.
func SupportedTypes() []string {
	return []string{TypePDF, TypeZip, TypeHTML}
}

// Extractor dispatches on declared MIME type.
type Extractor struct {
	pages PageReader
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPageReader replaces the PDF page reader.
func WithPageReader(r PageReader) Option {
	return func(e *Extractor) { e.pages = r }
}

// New returns an Extractor backed by the default PDF reader.
func New(opts ...Option) *Extractor {
	e := &Extractor{pages: LedongthucReader{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeType lowercases a declared MIME type, drops its parameters and
// resolves known aliases.
func NormalizeType(declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		t = mt
	}
	if canon, ok := typeAliases[t]; ok {
		return canon
	}
	return t
}

// Supported reports whether declared normalises to an accepted type.
func Supported(declared string) bool {
	switch NormalizeType(declared) {
	case TypePDF, TypeZip, TypeHTML:
		return true
	}
	return false
}

// Extract returns the plain text of data interpreted as declared.
func (e *Extractor) Extract(ctx context.Context, data []byte, declared string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch t := NormalizeType(declared); t {
	case TypePDF:
		return e.extractPDF(ctx, data)
	case TypeZip:
		return extractLaTeXZip(data)
	case TypeHTML:
		return extractHTML(data)
	default:
		return "", &UnsupportedFileTypeError{Type: declared}
	}
}

// ExtractFile reads the file at path and extracts it.
func (e *Extractor) ExtractFile(ctx context.Context, path, declared string) (string, error) {
	if !Supported(declared) {
		return "", &UnsupportedFileTypeError{Type: declared}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return e.Extract(ctx, data, declared)
}

// TypeForExtension guesses a declared type from a filename extension. It is
// used by the CLI, where there is no upload header to trust.
func TypeForExtension(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return TypePDF
	case strings.HasSuffix(lower, ".zip"):
		return TypeZip
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return TypeHTML
	}
	return "application/octet-stream"
}
