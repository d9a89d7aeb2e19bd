package vectordb

import (
	"fmt"
	"sort"
	"strings"
)

// FormatResults renders one query's results as human-readable text.
func FormatResults(results []QueryResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (distance: %.4f) ---\n", i+1, r.Distance))
		sb.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
		if len(r.Metadata) > 0 {
			keys := make([]string, 0, len(r.Metadata))
			for k := range r.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("%s: %v\n", k, r.Metadata[k]))
			}
		}
		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
