package engine

import (
	"log/slog"
	"time"

	"github.com/nao1215/dupescan/internal/fingerprint"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/originality"
	"github.com/nao1215/dupescan/internal/shingle"
	"github.com/nao1215/dupescan/internal/similarity"
)

// Options is the engine configuration.
type Options struct {
	// ShingleSize is the number of tokens per shingle.
	ShingleSize int

	// MinContentLength is the normalized length, in characters, below
	// which a page is skipped.
	MinContentLength int

	// HashAlgorithm names the hash used for shingles and the content hash.
	HashAlgorithm string

	// ExactThreshold, NearThreshold and RelatedThreshold are the lower
	// bounds of each classification.
	ExactThreshold   float64
	NearThreshold    float64
	RelatedThreshold float64

	// ExactPenalty is subtracted once if any exact duplicate exists.
	ExactPenalty float64

	// NearPenalty is subtracted per near duplicate.
	NearPenalty float64

	// MinTokenLength drops tokens shorter than this many characters.
	// Zero keeps every token.
	MinTokenLength int

	// Timeout is the compute budget per page. Zero means no limit.
	Timeout time.Duration

	// SubScorers are the intrinsic diversity signals. Nil selects the
	// built-in lexical, structural and pattern scorers.
	SubScorers []originality.SubScorer
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	th := similarity.DefaultThresholds()
	return Options{
		ShingleSize:      shingle.DefaultSize,
		MinContentLength: fingerprint.DefaultMinContentLength,
		HashAlgorithm:    fingerprint.DefaultAlgorithm,
		ExactThreshold:   th.Exact,
		NearThreshold:    th.Near,
		RelatedThreshold: th.Related,
		ExactPenalty:     originality.DefaultExactPenalty,
		NearPenalty:      originality.DefaultNearPenalty,
	}
}

// Thresholds returns the classification thresholds.
func (o Options) Thresholds() similarity.Thresholds {
	return similarity.Thresholds{
		Exact:   o.ExactThreshold,
		Near:    o.NearThreshold,
		Related: o.RelatedThreshold,
	}
}

// Penalties returns the scoring penalties.
func (o Options) Penalties() originality.Penalties {
	return originality.Penalties{Exact: o.ExactPenalty, Near: o.NearPenalty}
}

// Settings returns a serializable snapshot of the options.
func (o Options) Settings() model.AuditSettings {
	return model.AuditSettings{
		ShingleSize:      o.ShingleSize,
		MinContentLength: o.MinContentLength,
		MinTokenLength:   o.MinTokenLength,
		HashAlgorithm:    o.HashAlgorithm,
		ExactThreshold:   o.ExactThreshold,
		NearThreshold:    o.NearThreshold,
		RelatedThreshold: o.RelatedThreshold,
		ExactPenalty:     o.ExactPenalty,
		NearPenalty:      o.NearPenalty,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}
