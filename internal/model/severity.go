package model

// Severity represents how strongly a risk indicator affects originality.
// Iota-based so indicators can be compared and sorted by weight.
type Severity int

const (
	// SeverityInfo marks signals that are tracked but not penalized,
	// such as topically related pages.
	SeverityInfo Severity = iota

	// SeverityLow marks weak intrinsic-quality signals
	// (low vocabulary diversity, monotone sentence structure).
	SeverityLow

	// SeverityMedium marks near duplicates and heavily repeated phrasing.
	SeverityMedium

	// SeverityHigh marks exact duplicates of another page in the audit.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Risk indicator codes emitted by the originality scorer.
const (
	IndicatorExactDuplicate      = "exact_duplicate"
	IndicatorNearDuplicate       = "near_duplicate"
	IndicatorRelatedContent      = "related_content"
	IndicatorLowLexicalDiversity = "low_lexical_diversity"
	IndicatorMonotoneStructure   = "monotone_structure"
	IndicatorRepetitivePhrasing  = "repetitive_phrasing"
)

// IndicatorInfo contains metadata about an indicator code.
type IndicatorInfo struct {
	Severity       Severity
	Title          string
	Recommendation string
}

// indicatorInfoMapping is the single source of truth for indicator severity.
var indicatorInfoMapping = map[string]IndicatorInfo{
	IndicatorExactDuplicate: {
		Severity:       SeverityHigh,
		Title:          "Exact duplicate content",
		Recommendation: "Consolidate the pages or point one at the other with a canonical link.",
	},
	IndicatorNearDuplicate: {
		Severity:       SeverityMedium,
		Title:          "Near-duplicate content",
		Recommendation: "Rewrite the page so it carries substantially different content.",
	},
	IndicatorRelatedContent: {
		Severity:       SeverityInfo,
		Title:          "Related content",
		Recommendation: "Check that related pages target distinct topics.",
	},
	IndicatorLowLexicalDiversity: {
		Severity:       SeverityLow,
		Title:          "Low vocabulary diversity",
		Recommendation: "Vary the wording; the page repeats a small set of words.",
	},
	IndicatorMonotoneStructure: {
		Severity:       SeverityLow,
		Title:          "Monotone sentence structure",
		Recommendation: "Mix sentence lengths; the text reads as templated.",
	},
	IndicatorRepetitivePhrasing: {
		Severity:       SeverityMedium,
		Title:          "Repetitive phrasing",
		Recommendation: "Remove repeated boilerplate phrases from the body text.",
	},
}

// GetIndicatorInfo returns the metadata for an indicator code.
// Unknown codes are reported as informational.
func GetIndicatorInfo(code string) IndicatorInfo {
	if info, ok := indicatorInfoMapping[code]; ok {
		return info
	}
	return IndicatorInfo{Severity: SeverityInfo, Title: code}
}

// RiskIndicator is one flagged originality risk on a page.
type RiskIndicator struct {
	// Code is the indicator identifier (see the Indicator* constants).
	Code string `json:"code"`

	// Severity is the weight of the indicator.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Message describes the concrete observation.
	Message string `json:"message"`
}

// NewRiskIndicator creates an indicator with severity taken from the mapping.
func NewRiskIndicator(code, message string) RiskIndicator {
	info := GetIndicatorInfo(code)
	return RiskIndicator{
		Code:         code,
		Severity:     info.Severity,
		SeverityText: info.Severity.String(),
		Message:      message,
	}
}
