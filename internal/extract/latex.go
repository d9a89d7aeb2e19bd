package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const texExt = ".tex"

func extractLaTeXZip(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Type: TypeZip, Err: fmt.Errorf("opening archive: %w", err)}
	}

	var b strings.Builder
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, texExt) {
			continue
		}
		src, err := readZipEntry(f)
		if err != nil {
			return "", &ExtractionError{Type: TypeZip, Err: err}
		}
		if !utf8.Valid(src) {
			return "", &ExtractionError{Type: TypeZip, Err: fmt.Errorf("%s is not valid UTF-8", f.Name)}
		}
		b.WriteString(StripLaTeX(string(src)))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}

// StripLaTeX drops comment lines and lines that begin with a command, then
// joins what is left with single spaces.
func StripLaTeX(src string) string {
	var kept []string
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, `\`) {
			continue
		}
		kept = append(kept, strings.TrimSuffix(line, "\r"))
	}
	return strings.Join(kept, " ")
}
