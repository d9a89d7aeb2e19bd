package walker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// Dump writes "<relpath>:\n<content>\n\n" for every UTF-8 text file under
// root. Binary, unreadable and non-UTF-8 files are skipped silently. It
// returns the number of files written.
func Dump(w io.Writer, root string) (int, error) {
	files, err := Walk(Config{RootDir: root, MaxFileSize: -1})
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	n := 0
	for _, f := range files {
		if f.Binary {
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil || !utf8.Valid(data) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "<%s>:\n%s\n\n", f.RelPath, data); err != nil {
			return n, fmt.Errorf("writing %s: %w", f.RelPath, err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing output: %w", err)
	}
	return n, nil
}
