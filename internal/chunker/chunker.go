// Package chunker splits extracted document text into word-bounded chunks.
package chunker

import "strings"

// DefaultMaxWords is the chunk size used when none is configured.
const DefaultMaxWords = 1000

// Chunk splits text on whitespace and groups consecutive words into chunks of
// at most maxWords words, each joined by a single space. Only the last chunk
// may be shorter. Empty or whitespace-only text yields no chunks.
func Chunk(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
