package corpus

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/dupescan/internal/model"
)

func entry(url string, hashes ...string) model.CorpusEntry {
	return model.CorpusEntry{
		URL: url,
		Fingerprint: model.PageFingerprint{
			ShingleHashes: hashes,
			ShingleSize:   5,
			Algorithm:     "sha256",
		},
	}
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// TestNew tests corpus construction.
func TestNew(t *testing.T) {
	t.Parallel()

	c := New(5, "sha256")
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", c.Len())
	}
	if c.ShingleSize() != 5 || c.Algorithm() != "sha256" {
		t.Errorf("got size %d algorithm %q", c.ShingleSize(), c.Algorithm())
	}
	if c.ID() == "" || c.ID() == New(5, "sha256").ID() {
		t.Error("expected a unique session ID")
	}
}

// TestUpsertAndLookup tests insert, replace and lookup.
func TestUpsertAndLookup(t *testing.T) {
	t.Parallel()

	c := New(5, "sha256", WithClock(fixedClock()))

	if err := c.Upsert(entry("/a", "h1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Lookup("/a")
	if !ok {
		t.Fatal("expected /a to be found")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}

	if err := c.Upsert(entry("/a", "h2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after replace, expected 1", c.Len())
	}
	got, _ = c.Lookup("/a")
	if got.Fingerprint.ShingleHashes[0] != "h2" {
		t.Errorf("expected replaced entry, got %v", got.Fingerprint.ShingleHashes)
	}

	if _, ok := c.Lookup("/missing"); ok {
		t.Error("expected /missing to be absent")
	}
}

// TestUpsertIncompatible tests rejection of foreign fingerprints.
func TestUpsertIncompatible(t *testing.T) {
	t.Parallel()

	c := New(5, "sha256")

	wrongSize := entry("/a")
	wrongSize.Fingerprint.ShingleSize = 3
	if err := c.Upsert(wrongSize); !errors.Is(err, ErrIncompatibleFingerprint) {
		t.Errorf("expected ErrIncompatibleFingerprint, got %v", err)
	}

	wrongAlgo := entry("/b")
	wrongAlgo.Fingerprint.Algorithm = "md5"
	if err := c.Upsert(wrongAlgo); !errors.Is(err, ErrIncompatibleFingerprint) {
		t.Errorf("expected ErrIncompatibleFingerprint, got %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", c.Len())
	}
}

// TestEntriesOrder tests that entries are returned in insertion order.
func TestEntriesOrder(t *testing.T) {
	t.Parallel()

	c := New(5, "sha256", WithClock(fixedClock()))
	for _, u := range []string{"/c", "/a", "/b"} {
		if err := c.Upsert(entry(u)); err != nil {
			t.Fatal(err)
		}
	}

	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, expected 3", len(entries))
	}
	for i, want := range []string{"/c", "/a", "/b"} {
		if entries[i].URL != want {
			t.Errorf("entries[%d] = %q, expected %q", i, entries[i].URL, want)
		}
	}
}

// TestCommit tests the compare-then-insert primitive.
func TestCommit(t *testing.T) {
	t.Parallel()

	t.Run("excludes own URL and inserts", func(t *testing.T) {
		t.Parallel()

		c := New(5, "sha256")
		_ = c.Upsert(entry("/a"))
		_ = c.Upsert(entry("/b"))

		var seen []string
		err := c.Commit("/a", func(others []model.CorpusEntry) (*model.CorpusEntry, error) {
			for _, o := range others {
				seen = append(seen, o.URL)
			}
			e := entry("/a", "new")
			return &e, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 1 || seen[0] != "/b" {
			t.Errorf("fn saw %v, expected [/b]", seen)
		}
		got, _ := c.Lookup("/a")
		if len(got.Fingerprint.ShingleHashes) != 1 || got.Fingerprint.ShingleHashes[0] != "new" {
			t.Errorf("entry not replaced: %v", got.Fingerprint.ShingleHashes)
		}
	})

	t.Run("error leaves corpus unmodified", func(t *testing.T) {
		t.Parallel()

		c := New(5, "sha256")
		boom := errors.New("boom")
		err := c.Commit("/x", func([]model.CorpusEntry) (*model.CorpusEntry, error) {
			e := entry("/x")
			return &e, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d, expected 0", c.Len())
		}
	})

	t.Run("nil entry leaves corpus unmodified", func(t *testing.T) {
		t.Parallel()

		c := New(5, "sha256")
		if err := c.Commit("/x", func([]model.CorpusEntry) (*model.CorpusEntry, error) {
			return nil, nil
		}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d, expected 0", c.Len())
		}
	})
}

// TestCommitSerializes tests that concurrent commits observe each other.
// Every commit counts the entries it sees; with a held lock the counts are
// exactly 0..n-1 in some order.
func TestCommitSerializes(t *testing.T) {
	t.Parallel()

	const n = 64
	c := New(5, "sha256")
	seen := make([]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("/p%d", i)
			_ = c.Commit(url, func(others []model.CorpusEntry) (*model.CorpusEntry, error) {
				mu.Lock()
				seen[len(others)] = true
				mu.Unlock()
				e := entry(url)
				return &e, nil
			})
		}(i)
	}
	wg.Wait()

	for i, ok := range seen {
		if !ok {
			t.Errorf("no commit observed %d prior entries", i)
		}
	}
	if c.Len() != n {
		t.Errorf("Len() = %d, expected %d", c.Len(), n)
	}
}
