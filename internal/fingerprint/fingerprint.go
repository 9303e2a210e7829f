// Package fingerprint hashes shingles into a page signature: a set of
// per-shingle hashes plus one aggregate content hash.
package fingerprint

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/dupescan/internal/model"
)

// DefaultMinContentLength is the normalized length, in characters, below
// which a page is not fingerprinted.
const DefaultMinContentLength = 100

// Options controls fingerprint construction.
type Options struct {
	// Hasher hashes shingles and the content hash.
	Hasher Hasher

	// ShingleSize is recorded on the fingerprint.
	ShingleSize int

	// MinContentLength is the minimum normalized length in characters.
	MinContentLength int
}

// Build computes the fingerprint of a page from its normalized text and
// shingles. It returns ErrInsufficientContent when the text is shorter than
// MinContentLength characters or there are no shingles.
func Build(normalized string, shingles []string, opts Options) (model.PageFingerprint, error) {
	if utf8.RuneCountInString(normalized) < opts.MinContentLength || len(shingles) == 0 {
		return model.PageFingerprint{}, ErrInsufficientContent
	}

	var concat strings.Builder
	set := make(map[string]struct{}, len(shingles))
	for _, s := range shingles {
		h := opts.Hasher.Sum(s)
		concat.WriteString(h)
		set[h] = struct{}{}
	}

	hashes := make([]string, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	return model.PageFingerprint{
		ContentHash:   opts.Hasher.Sum(concat.String()),
		ShingleHashes: hashes,
		ShingleCount:  len(shingles),
		ShingleSize:   opts.ShingleSize,
		Algorithm:     opts.Hasher.Name(),
	}, nil
}
