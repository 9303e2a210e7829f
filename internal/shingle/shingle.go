// Package shingle splits normalized text into tokens and overlapping
// word n-grams ("shingles"), the atomic unit of content comparison.
package shingle

import (
	"strings"
	"unicode/utf8"

	"github.com/nao1215/dupescan/internal/textnorm"
)

// DefaultSize is the number of tokens per shingle.
const DefaultSize = 5

// Tokenize splits normalized text on whitespace.
// Sentence terminators are trimmed from token edges and empty tokens are
// dropped. When minTokenLen > 0, tokens shorter than minTokenLen runes are
// dropped as well.
func Tokenize(normalized string, minTokenLen int) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, textnorm.IsTerminator)
		if tok == "" {
			continue
		}
		if minTokenLen > 0 && utf8.RuneCountInString(tok) < minTokenLen {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Generate returns every window of size consecutive tokens, joined by a single
// space, in order. Fewer tokens than size (or a non-positive size) yields an
// empty slice.
func Generate(tokens []string, size int) []string {
	if size <= 0 || len(tokens) < size {
		return []string{}
	}

	shingles := make([]string, 0, len(tokens)-size+1)
	for i := 0; i <= len(tokens)-size; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+size], " "))
	}
	return shingles
}
