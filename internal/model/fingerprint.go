package model

import "time"

// PageFingerprint is the content signature of one page.
type PageFingerprint struct {
	// ContentHash summarizes the whole page: the hash of the concatenation
	// of all shingle hashes in generation order.
	ContentHash string `json:"content_hash"`

	// ShingleHashes is the set of per-shingle hashes.
	// Stored de-duplicated and sorted; order carries no meaning.
	ShingleHashes []string `json:"shingle_hashes"`

	// ShingleCount is the number of shingles before de-duplication.
	// Informational only.
	ShingleCount int `json:"shingle_count"`

	// ShingleSize is the number of tokens per shingle.
	ShingleSize int `json:"shingle_size"`

	// Algorithm identifies the hash function used for every hash above.
	Algorithm string `json:"algorithm"`
}

// UniqueShingles returns the size of the shingle-hash set.
func (f PageFingerprint) UniqueShingles() int {
	return len(f.ShingleHashes)
}

// Compatible reports whether two fingerprints can be compared.
// Fingerprints built with a different shingle size or hash algorithm
// live in different hash spaces.
func (f PageFingerprint) Compatible(other PageFingerprint) bool {
	return f.ShingleSize == other.ShingleSize && f.Algorithm == other.Algorithm
}

// CorpusEntry is one fingerprinted page stored in a content corpus.
type CorpusEntry struct {
	// URL is the unique key of the entry.
	URL string `json:"url"`

	// NormalizedText is the text the fingerprint was derived from.
	// Retained for segment-level reporting, never for re-hashing.
	NormalizedText string `json:"normalized_text"`

	// Fingerprint is the page signature.
	Fingerprint PageFingerprint `json:"fingerprint"`

	// CreatedAt is when the entry was committed to the corpus.
	CreatedAt time.Time `json:"created_at"`
}
