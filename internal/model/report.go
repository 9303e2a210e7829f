package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditReport is the result of one audit session.
// One session owns one content corpus; every page result in the report was
// compared against the pages analyzed before it in the same session.
type AuditReport struct {
	// ID is the unique identifier of the audit session.
	ID string `json:"id"`

	// Target is what was audited: a site URL or a set of local paths.
	Target string `json:"target"`

	// DateScanned is when the audit started.
	DateScanned time.Time `json:"date_scanned"`

	// DateFinished is when the audit completed.
	DateFinished time.Time `json:"date_finished,omitempty"`

	// Settings records the engine configuration the audit ran with.
	Settings AuditSettings `json:"settings"`

	// Pages contains every collected page awaiting or after analysis.
	Pages []*Page `json:"-"` // Excluded from JSON due to size

	// Results contains one entry per analyzed page, in collection order.
	Results []PageResult `json:"results"`

	// Summary is derived from Results by NewAuditSummary.
	Summary *AuditSummary `json:"summary,omitempty"`

	// PerformedSteps lists pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut indicates the audit was cancelled before all steps ran.
	TimedOut bool `json:"timed_out"`

	// Error is the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the serializable form of Error.
	ErrorMessage string `json:"error,omitempty"`

	mu sync.Mutex
}

// AuditSettings is a snapshot of the engine configuration.
type AuditSettings struct {
	ShingleSize      int     `json:"shingle_size"`
	MinContentLength int     `json:"min_content_length"`
	MinTokenLength   int     `json:"min_token_length,omitempty"`
	HashAlgorithm    string  `json:"hash_algorithm"`
	ExactThreshold   float64 `json:"exact_threshold"`
	NearThreshold    float64 `json:"near_threshold"`
	RelatedThreshold float64 `json:"related_threshold"`
	ExactPenalty     float64 `json:"exact_penalty"`
	NearPenalty      float64 `json:"near_penalty"`
}

// PageResult pairs a page with its originality report.
type PageResult struct {
	URL       string            `json:"url"`
	Title     string            `json:"title,omitempty"`
	WordCount int               `json:"word_count"`
	Report    OriginalityReport `json:"report"`
}

// NewAuditReport creates an empty report for the given target.
func NewAuditReport(target string) *AuditReport {
	return &AuditReport{
		ID:          uuid.NewString(),
		Target:      target,
		DateScanned: time.Now(),
		Pages:       make([]*Page, 0),
		Results:     make([]PageResult, 0),
	}
}

// AddPages appends collected pages. Safe for concurrent use.
func (r *AuditReport) AddPages(pages ...*Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pages = append(r.Pages, pages...)
}

// SetResults replaces the page results. Safe for concurrent use.
func (r *AuditReport) SetResults(results []PageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = results
}

// Finish stamps the completion time and computes the summary.
func (r *AuditReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DateFinished = time.Now()
	r.Summary = NewAuditSummary(r.Results)
}
