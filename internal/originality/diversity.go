package originality

import (
	"math"
	"strings"

	"github.com/nao1215/dupescan/internal/shingle"
	"github.com/nao1215/dupescan/internal/textnorm"
)

// Names of the built-in sub-scorers.
const (
	LexicalName    = "lexical"
	StructuralName = "structural"
	PatternName    = "pattern"
)

// neutral is returned when a text is too small to measure.
const neutral = 0.5

// structuralSpread is the coefficient of variation that maps to a full
// structural score.
const structuralSpread = 0.6

// structuralFloor is the structural score of perfectly even sentence
// lengths. It sits just under neutral: even sentences are common in original
// writing and must not sink uniqueness on their own.
const structuralFloor = 0.4

// SubScorer is a pluggable intrinsic diversity signal.
// Score receives normalized text and returns a value in [0, 1];
// out-of-range values are clamped.
type SubScorer interface {
	Name() string
	Score(normalized string) float64
}

// DefaultSubScorers returns the built-in lexical, structural and pattern scorers.
func DefaultSubScorers() []SubScorer {
	return []SubScorer{Lexical{}, Structural{}, Pattern{}}
}

// Lexical measures vocabulary diversity: the mean of the type-token ratio
// and a root type-token ratio that does not decay with text length.
type Lexical struct{}

// Name implements SubScorer.
func (Lexical) Name() string { return LexicalName }

// Score implements SubScorer.
func (Lexical) Score(normalized string) float64 {
	tokens := shingle.Tokenize(normalized, 0)
	if len(tokens) == 0 {
		return 0
	}

	types := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		types[tok] = struct{}{}
	}

	total := float64(len(tokens))
	unique := float64(len(types))
	ttr := unique / total
	root := math.Min(unique/math.Sqrt(2*total), 1)
	return 0.5*ttr + 0.5*root
}

// Structural measures sentence-length variation as the coefficient of
// variation of words per sentence, mapped onto [structuralFloor, 1].
// Fewer than two sentences score neutral.
type Structural struct{}

// Name implements SubScorer.
func (Structural) Name() string { return StructuralName }

// Score implements SubScorer.
func (Structural) Score(normalized string) float64 {
	sentences := textnorm.Sentences(normalized)
	if len(sentences) < 2 {
		return neutral
	}

	lengths := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))
	if mean == 0 {
		return structuralFloor
	}

	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))

	cv := math.Sqrt(variance) / mean
	return structuralFloor + (1-structuralFloor)*math.Min(cv/structuralSpread, 1)
}

// Pattern measures phrasing diversity as the ratio of distinct word trigrams
// to all trigrams. Fewer than three tokens score neutral.
type Pattern struct{}

// Name implements SubScorer.
func (Pattern) Name() string { return PatternName }

// Score implements SubScorer.
func (Pattern) Score(normalized string) float64 {
	trigrams := shingle.Generate(shingle.Tokenize(normalized, 0), 3)
	if len(trigrams) == 0 {
		return neutral
	}

	seen := make(map[string]struct{}, len(trigrams))
	for _, tg := range trigrams {
		seen[tg] = struct{}{}
	}
	return float64(len(seen)) / float64(len(trigrams))
}

// Constant is a stand-in sub-scorer that always returns the same value.
// It fills slots for signals that have no algorithm yet.
type Constant struct {
	Label string
	Value float64
}

// Name implements SubScorer.
func (c Constant) Name() string { return c.Label }

// Score implements SubScorer.
func (c Constant) Score(string) float64 { return c.Value }

// Func adapts a plain function to a SubScorer.
func Func(name string, fn func(normalized string) float64) SubScorer {
	return funcScorer{name: name, fn: fn}
}

type funcScorer struct {
	name string
	fn   func(string) float64
}

func (f funcScorer) Name() string { return f.name }
func (f funcScorer) Score(text string) float64 { return f.fn(text) }

// clamp01 bounds v to [0, 1]; NaN becomes 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
