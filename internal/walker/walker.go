// Package walker finds the files under a directory that ingest and dump
// operate on.
package walker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the largest file Walk returns unless configured
// otherwise (64 MB).
const DefaultMaxFileSize int64 = 64 << 20

// FileInfo holds metadata about a single file discovered during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Slash-separated path relative to the root directory.
	Size        int64  // File size in bytes.
	Binary      bool   // The first 512 bytes contain a NUL byte.
	ContentHash string // SHA-256 hex digest; set only when Config.Hash is true.
}

// Config controls the behaviour of the Walk function.
type Config struct {
	RootDir string
	// Include keeps only files matching one of these doublestar patterns.
	Include []string
	// Exclude drops files matching one of these doublestar patterns.
	Exclude []string
	// MaxFileSize skips larger files. Zero means DefaultMaxFileSize and a
	// negative value disables the limit.
	MaxFileSize int64
	// Gitignore honours a .gitignore at the root.
	Gitignore bool
	// Hash fills FileInfo.ContentHash.
	Hash bool
}

// Walk traverses the tree rooted at cfg.RootDir and returns every regular
// file that passes filtering, sorted by relative path. Default-excluded
// directories and files are always skipped.
func Walk(cfg Config) ([]FileInfo, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walker: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("walker: %s is not a directory", root)
	}

	maxSize := cfg.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	var gitignorePatterns []string
	if cfg.Gitignore {
		gitignorePatterns = loadGitignore(filepath.Join(root, ".gitignore"))
	}

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path != root && shouldExcludeDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || shouldExcludeFile(name) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if matchesGitignore(relPath, gitignorePatterns) {
			return nil
		}
		if !MatchesInclude(relPath, cfg.Include) {
			return nil
		}
		if MatchesExclude(relPath, cfg.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if maxSize > 0 && info.Size() > maxSize {
			return nil
		}

		fi := FileInfo{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
			Binary:  isBinary(path),
		}
		if cfg.Hash {
			if fi.ContentHash, err = hashFile(path); err != nil {
				return nil
			}
		}
		files = append(files, fi)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// isBinary reads the first 512 bytes of a file and checks for NUL bytes.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true // treat unreadable files as binary
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}

	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// loadGitignore reads a .gitignore file and returns its non-empty,
// non-comment lines as patterns.
func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesGitignore checks if a relative path matches any gitignore pattern.
// Patterns without a slash match any path component; directory-only
// patterns (trailing /) match components other than the file name.
func matchesGitignore(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relPath)
	parts := strings.Split(normalized, "/")

	for _, pattern := range patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.Trim(pattern, "/")

		if strings.Contains(pattern, "/") {
			if matched, _ := filepath.Match(pattern, normalized); matched {
				return true
			}
			continue
		}

		candidates := parts
		if dirOnly {
			candidates = parts[:len(parts)-1]
		}
		for _, part := range candidates {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
