// Package originality turns similarity results and intrinsic diversity
// signals into a 0-100 originality score with risk indicators.
package originality

import (
	"fmt"
	"math"

	"github.com/nao1215/dupescan/internal/model"
)

// Default penalties.
const (
	DefaultExactPenalty = 50
	DefaultNearPenalty  = 10
)

// Indicator thresholds on the built-in sub-scores.
const (
	lowLexicalThreshold     = 0.35
	monotoneThreshold       = 0.45
	repetitivePatternCutoff = 0.5
)

// skippedScore is the neutral score given to pages that were not analyzed.
const skippedScore = 50

// Penalties are subtracted from the score for duplicates.
type Penalties struct {
	// Exact is applied once if any exact duplicate exists.
	Exact float64
	// Near is applied per near duplicate.
	Near float64
}

// DefaultPenalties returns exact 50 and near 10.
func DefaultPenalties() Penalties {
	return Penalties{Exact: DefaultExactPenalty, Near: DefaultNearPenalty}
}

// Uniqueness runs every scorer over the normalized text and aggregates the
// results into a 0-100 score. With no scorers the score is neutral.
func Uniqueness(normalized string, scorers []SubScorer) model.UniquenessScores {
	u := model.UniquenessScores{SubScores: make(map[string]float64, len(scorers))}
	if len(scorers) == 0 {
		u.Score = skippedScore
		return u
	}

	var sum float64
	for _, s := range scorers {
		v := clamp01(s.Score(normalized))
		u.SubScores[s.Name()] = v
		sum += v
	}

	u.Lexical = u.SubScores[LexicalName]
	u.Structural = u.SubScores[StructuralName]
	u.Pattern = u.SubScores[PatternName]
	u.Score = sum / float64(len(scorers)) * 100
	return u
}

// Score builds the report for an analyzed page.
//
// The uniqueness score is blended 50/50 with a clean baseline of 100, then
// the penalties are subtracted: the exact penalty once if any exact duplicate
// exists and the near penalty per near duplicate. The result is clamped to
// [0, 100] and rounded half away from zero. Related results never cost points.
func Score(results []model.SimilarityResult, uniqueness model.UniquenessScores, p Penalties) model.OriginalityReport {
	rep := model.OriginalityReport{Uniqueness: uniqueness}

	for _, r := range results {
		switch r.Classification {
		case model.ClassExact:
			rep.ExactDuplicates = append(rep.ExactDuplicates, r)
		case model.ClassNear:
			rep.NearDuplicates = append(rep.NearDuplicates, r)
		case model.ClassRelated:
			rep.Related = append(rep.Related, r)
		}
	}

	var penalty float64
	if len(rep.ExactDuplicates) > 0 {
		penalty += p.Exact
	}
	penalty += p.Near * float64(len(rep.NearDuplicates))

	rep.DuplicationScore = round(clamp(100-penalty, 0, 100))
	blended := (100 + clamp(uniqueness.Score, 0, 100)) / 2
	rep.OriginalityScore = round(clamp(blended-penalty, 0, 100))

	rep.Indicators = indicators(&rep)
	return rep
}

// Skipped returns the minimal report for a page that was not analyzed.
func Skipped(reason string) model.OriginalityReport {
	return model.OriginalityReport{
		Uniqueness:       model.UniquenessScores{Score: skippedScore},
		DuplicationScore: 100,
		OriginalityScore: skippedScore,
		AnalysisSkipped:  true,
		SkipReason:       reason,
	}
}

// Failed returns the report for a page whose analysis failed.
func Failed(err error) model.OriginalityReport {
	return model.OriginalityReport{
		OriginalityScore: 0,
		Error:            err.Error(),
	}
}

func indicators(rep *model.OriginalityReport) []model.RiskIndicator {
	var out []model.RiskIndicator

	for _, d := range rep.ExactDuplicates {
		out = append(out, model.NewRiskIndicator(model.IndicatorExactDuplicate,
			fmt.Sprintf("content matches %s (similarity %.2f)", d.OtherURL, d.Similarity)))
	}
	for _, d := range rep.NearDuplicates {
		out = append(out, model.NewRiskIndicator(model.IndicatorNearDuplicate,
			fmt.Sprintf("content closely resembles %s (similarity %.2f)", d.OtherURL, d.Similarity)))
	}
	if n := len(rep.Related); n > 0 {
		out = append(out, model.NewRiskIndicator(model.IndicatorRelatedContent,
			fmt.Sprintf("%d related page(s), closest %s (similarity %.2f)", n, rep.Related[0].OtherURL, rep.Related[0].Similarity)))
	}

	sub := rep.Uniqueness.SubScores
	if v, ok := sub[LexicalName]; ok && v < lowLexicalThreshold {
		out = append(out, model.NewRiskIndicator(model.IndicatorLowLexicalDiversity,
			fmt.Sprintf("lexical diversity %.2f", v)))
	}
	if v, ok := sub[StructuralName]; ok && v < monotoneThreshold {
		out = append(out, model.NewRiskIndicator(model.IndicatorMonotoneStructure,
			fmt.Sprintf("structural diversity %.2f", v)))
	}
	if v, ok := sub[PatternName]; ok && v < repetitivePatternCutoff {
		out = append(out, model.NewRiskIndicator(model.IndicatorRepetitivePhrasing,
			fmt.Sprintf("pattern diversity %.2f", v)))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) int {
	return int(math.Round(v))
}
