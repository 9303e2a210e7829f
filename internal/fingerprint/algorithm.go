package fingerprint

import (
	"crypto/md5"  //nolint:gosec // offered for compatibility with legacy fingerprints
	"crypto/sha1" //nolint:gosec // offered for compatibility with legacy fingerprints
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// DefaultAlgorithm is the hash used when none is configured.
const DefaultAlgorithm = "sha256"

// Hasher hashes strings into lower-case hex digests.
type Hasher struct {
	name string
	new  func() hash.Hash
}

// Name returns the registered algorithm name.
func (h Hasher) Name() string {
	return h.name
}

// Sum returns the hex digest of s.
func (h Hasher) Sum(s string) string {
	d := h.new()
	_, _ = d.Write([]byte(s)) // hash.Hash.Write never returns an error
	return hex.EncodeToString(d.Sum(nil))
}

// registry maps algorithm names to constructors.
var registry = map[string]func() hash.Hash{
	"sha256":   sha256.New,
	"sha1":     sha1.New,
	"sha512":   sha512.New,
	"md5":      md5.New,
	"sha3-256": sha3.New256,
	"blake2b-256": func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			// only fails for keys longer than 64 bytes
			panic(err)
		}
		return h
	},
}

// Lookup returns the hasher registered under name.
func Lookup(name string) (Hasher, error) {
	fn, ok := registry[name]
	if !ok {
		return Hasher{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return Hasher{name: name, new: fn}, nil
}

// Algorithms returns every registered algorithm name, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
