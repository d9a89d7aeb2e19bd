package extract

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// extractHTML returns visible text nodes, trimmed and space separated.
func extractHTML(data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))

	var parts []string
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", &ExtractionError{Type: TypeHTML, Err: err}
			}
			return strings.Join(parts, " "), nil
		case html.StartTagToken:
			if isHiddenTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isHiddenTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
}

func isHiddenTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
