package model

// Classification is the outcome of comparing two fingerprints.
type Classification string

const (
	// ClassExact means similarity reached the exact-duplicate threshold.
	ClassExact Classification = "exact"
	// ClassNear means similarity reached the near-duplicate threshold.
	ClassNear Classification = "near"
	// ClassRelated means the pages overlap but are not duplicates.
	ClassRelated Classification = "related"
	// ClassDistinct means the pages share too little to report.
	ClassDistinct Classification = "distinct"
)

// SimilarityResult is one comparison between a page and another corpus entry.
type SimilarityResult struct {
	// OtherURL is the corpus entry the page was compared against.
	OtherURL string `json:"other_url"`

	// Similarity is the Jaccard index of both shingle-hash sets, in [0,1].
	Similarity float64 `json:"similarity"`

	// Classification is derived from Similarity and the configured thresholds.
	Classification Classification `json:"classification"`
}

// UniquenessScores holds the intrinsic (corpus-independent) diversity signals.
type UniquenessScores struct {
	// Lexical is vocabulary diversity in [0,1].
	Lexical float64 `json:"lexical"`

	// Structural is sentence-length variation in [0,1].
	Structural float64 `json:"structural"`

	// Pattern is word-trigram diversity in [0,1].
	Pattern float64 `json:"pattern"`

	// SubScores contains every registered sub-score by name,
	// including the three above and any plugged-in hooks.
	SubScores map[string]float64 `json:"sub_scores,omitempty"`

	// Score is the aggregate uniqueness score in [0,100].
	Score float64 `json:"score"`
}

// OriginalityReport is the result of analyzing one page.
type OriginalityReport struct {
	// PageID is the identifier the page was analyzed under.
	PageID string `json:"page_id"`

	// Uniqueness contains intrinsic diversity sub-scores and their aggregate.
	Uniqueness UniquenessScores `json:"uniqueness"`

	// ExactDuplicates lists corpus entries classified as exact duplicates.
	ExactDuplicates []SimilarityResult `json:"exact_duplicates,omitempty"`

	// NearDuplicates lists corpus entries classified as near duplicates.
	NearDuplicates []SimilarityResult `json:"near_duplicates,omitempty"`

	// Related lists overlapping entries; tracked for reporting, never penalized.
	Related []SimilarityResult `json:"related,omitempty"`

	// DuplicationScore is 100 minus duplicate penalties, clamped at 0.
	// It is the corpus-relative part of the originality score.
	DuplicationScore int `json:"duplication_score"`

	// OriginalityScore is the final 0-100 score.
	OriginalityScore int `json:"originality_score"`

	// Indicators are flagged originality risks.
	Indicators []RiskIndicator `json:"indicators,omitempty"`

	// ContentHash is the aggregate fingerprint hash (empty when skipped).
	ContentHash string `json:"content_hash,omitempty"`

	// ShingleCount is the number of shingles generated for the page.
	ShingleCount int `json:"shingle_count"`

	// AnalysisSkipped is true when the content was too short to fingerprint,
	// or when the analysis ran out of time before touching the corpus.
	AnalysisSkipped bool `json:"analysis_skipped"`

	// SkipReason explains why the analysis was skipped.
	SkipReason string `json:"skip_reason,omitempty"`

	// Error is the error flag: it is set only when the analysis hit a
	// computation error. Such a report has OriginalityScore 0 and
	// AnalysisSkipped false, and HasError reports it.
	Error string `json:"error,omitempty"`
}

// DuplicateCount returns the number of exact and near duplicates found.
func (r *OriginalityReport) DuplicateCount() int {
	return len(r.ExactDuplicates) + len(r.NearDuplicates)
}

// HasError reports whether the analysis failed.
func (r *OriginalityReport) HasError() bool {
	return r.Error != ""
}

// HighestSeverity returns the most severe indicator level on the report.
// Reports without indicators return SeverityInfo.
func (r *OriginalityReport) HighestSeverity() Severity {
	highest := SeverityInfo
	for _, ind := range r.Indicators {
		if ind.Severity > highest {
			highest = ind.Severity
		}
	}
	return highest
}
