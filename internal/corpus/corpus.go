// Package corpus holds the session-scoped collection of fingerprinted pages
// that new pages are compared against.
//
// A Corpus is an explicit object owned by one audit session; there is no
// package-level instance. All methods are safe for concurrent use. Commit is
// the only way to run a comparison and an insert as one atomic step.
package corpus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/dupescan/internal/model"
)

// ErrIncompatibleFingerprint is returned when an entry was built with a
// different shingle size or hash algorithm than the corpus.
var ErrIncompatibleFingerprint = errors.New("fingerprint is incompatible with corpus")

// Corpus is a mutex-guarded map of URL to corpus entry.
type Corpus struct {
	id          string
	shingleSize int
	algorithm   string
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]model.CorpusEntry
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithClock sets the function used to stamp CreatedAt on new entries.
func WithClock(now func() time.Time) Option {
	return func(c *Corpus) {
		c.now = now
	}
}

// New creates an empty corpus for fingerprints of the given shingle size and
// hash algorithm.
func New(shingleSize int, algorithm string, opts ...Option) *Corpus {
	c := &Corpus{
		id:          uuid.NewString(),
		shingleSize: shingleSize,
		algorithm:   algorithm,
		now:         time.Now,
		entries:     make(map[string]model.CorpusEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session identifier of the corpus.
func (c *Corpus) ID() string { return c.id }

// ShingleSize returns the shingle size entries must be built with.
func (c *Corpus) ShingleSize() int { return c.shingleSize }

// Algorithm returns the hash algorithm entries must be built with.
func (c *Corpus) Algorithm() string { return c.algorithm }

// Len returns the number of entries.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup returns the entry stored under url.
func (c *Corpus) Lookup(url string) (model.CorpusEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	return e, ok
}

// Entries returns a copy of every entry sorted by CreatedAt, then URL.
func (c *Corpus) Entries() []model.CorpusEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot("")
}

// Upsert inserts or replaces the entry for entry.URL.
func (c *Corpus) Upsert(entry model.CorpusEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsert(entry)
}

// Commit runs fn with every entry except url while holding the corpus lock,
// then stores the entry fn returns. Nothing is stored when fn returns an
// error or a nil entry. No other writer can interleave between the
// comparison fn performs and the insert.
func (c *Corpus) Commit(url string, fn func(others []model.CorpusEntry) (*model.CorpusEntry, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := fn(c.snapshot(url))
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	return c.upsert(*entry)
}

// upsert must be called with mu held.
func (c *Corpus) upsert(entry model.CorpusEntry) error {
	fp := entry.Fingerprint
	if fp.ShingleSize != c.shingleSize || fp.Algorithm != c.algorithm {
		return fmt.Errorf("%w: entry %q has shingle size %d and algorithm %q, corpus expects %d and %q",
			ErrIncompatibleFingerprint, entry.URL, fp.ShingleSize, fp.Algorithm, c.shingleSize, c.algorithm)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	c.entries[entry.URL] = entry
	return nil
}

// snapshot must be called with mu held. Entries under exclude are skipped.
func (c *Corpus) snapshot(exclude string) []model.CorpusEntry {
	out := make([]model.CorpusEntry, 0, len(c.entries))
	for url, e := range c.entries {
		if exclude != "" && url == exclude {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].URL < out[j].URL
	})
	return out
}
