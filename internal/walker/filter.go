package walker

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are directory names whose subtrees are never visited.
var DefaultExcludes = []string{
	"node_modules",
	".git",
	"venv",
	".vscode",
	".nuxt",
	".output",
}

// DefaultFileExcludes are file names that are never returned.
var DefaultFileExcludes = []string{
	"pnpm-lock.yaml",
	".gitignore",
}

func shouldExcludeDir(name string) bool {
	for _, excl := range DefaultExcludes {
		if name == excl {
			return true
		}
	}
	return false
}

func shouldExcludeFile(name string) bool {
	for _, excl := range DefaultFileExcludes {
		if name == excl {
			return true
		}
	}
	return false
}

// MatchesInclude returns true if the given relative path matches any of the
// include patterns. If patterns is empty, everything is included.
func MatchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// MatchesExclude returns true if the given relative path matches any of the
// exclude patterns. If patterns is empty, nothing is excluded.
func MatchesExclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(relPath, patterns)
}

// matchesAny tries each pattern against the full path and then the base name.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
