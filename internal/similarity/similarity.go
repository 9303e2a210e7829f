// Package similarity compares page fingerprints with the Jaccard index and
// classifies each comparison as exact, near, related or distinct.
//
// Comparison is a full scan: every candidate is compared against every other
// corpus entry. Bucketing fingerprints by minhash bands would prune that scan
// for very large sites; it is not implemented.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/dupescan/internal/model"
)

// cancelCheckInterval is how many comparisons run between context checks.
const cancelCheckInterval = 64

// Thresholds are the lower bounds of each classification.
type Thresholds struct {
	Exact   float64
	Near    float64
	Related float64
}

// DefaultThresholds returns exact 0.95, near 0.85 and related 0.30.
func DefaultThresholds() Thresholds {
	return Thresholds{Exact: 0.95, Near: 0.85, Related: 0.30}
}

// Validate checks that every threshold is in (0, 1] and that they are
// strictly ordered.
func (t Thresholds) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"exact", t.Exact},
		{"near", t.Near},
		{"related", t.Related},
	} {
		if v.value <= 0 || v.value > 1 {
			return fmt.Errorf("%w: %s threshold is %v", ErrThresholdRange, v.name, v.value)
		}
	}
	if t.Near >= t.Exact {
		return fmt.Errorf("%w: near %v >= exact %v", ErrThresholdOrder, t.Near, t.Exact)
	}
	if t.Related >= t.Near {
		return fmt.Errorf("%w: related %v >= near %v", ErrThresholdOrder, t.Related, t.Near)
	}
	return nil
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the distinct elements of a and b.
// An empty set on either side yields 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	set := make(map[string]struct{}, len(large))
	for _, h := range large {
		set[h] = struct{}{}
	}

	seen := make(map[string]struct{}, len(small))
	intersection := 0
	for _, h := range small {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if _, ok := set[h]; ok {
			intersection++
		}
	}

	union := len(set) + len(seen) - intersection
	return float64(intersection) / float64(union)
}

// Classify maps a similarity value onto a classification.
func Classify(sim float64, th Thresholds) model.Classification {
	switch {
	case sim >= th.Exact:
		return model.ClassExact
	case sim >= th.Near:
		return model.ClassNear
	case sim >= th.Related:
		return model.ClassRelated
	default:
		return model.ClassDistinct
	}
}

// Compare compares candidate against every entry in others except selfURL.
// Distinct results are dropped; the rest are sorted by similarity descending,
// then by URL.
func Compare(candidate model.PageFingerprint, selfURL string, others []model.CorpusEntry, th Thresholds) []model.SimilarityResult {
	results, _ := CompareContext(context.Background(), candidate, selfURL, others, th)
	return results
}

// CompareContext is Compare with cancellation. It returns ctx.Err() when the
// context ends before the scan completes.
func CompareContext(ctx context.Context, candidate model.PageFingerprint, selfURL string, others []model.CorpusEntry, th Thresholds) ([]model.SimilarityResult, error) {
	results := make([]model.SimilarityResult, 0)
	for i, other := range others {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if other.URL == selfURL {
			continue
		}

		sim := Jaccard(candidate.ShingleHashes, other.Fingerprint.ShingleHashes)
		class := Classify(sim, th)
		if class == model.ClassDistinct {
			continue
		}
		results = append(results, model.SimilarityResult{
			OtherURL:       other.URL,
			Similarity:     sim,
			Classification: class,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].OtherURL < results[j].OtherURL
	})
	return results, nil
}
