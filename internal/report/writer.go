package report

import (
	"io"

	"github.com/nao1215/dupescan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write audit results in various formats.
type Writer interface {
	// Write outputs one audit report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)

	// WriteBatch outputs the reports of several audits in order.
	// Nil entries (audits that never started) are skipped.
	WriteBatch(reports []*model.AuditReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the reports to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// writeEach calls write for every non-nil report.
func writeEach(reports []*model.AuditReport, write func(*model.AuditReport) (int, error)) (int, error) {
	var total int
	for _, r := range reports {
		if r == nil {
			continue
		}
		n, err := write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// PageStatus labels a page result for tables and charts.
type PageStatus string

// Page statuses, from worst to best.
const (
	StatusFailed         PageStatus = "failed"
	StatusExactDuplicate PageStatus = "exact duplicate"
	StatusNearDuplicate  PageStatus = "near duplicate"
	StatusSkipped        PageStatus = "skipped"
	StatusOriginal       PageStatus = "original"
)

// statusOrder lists statuses in display order.
var statusOrder = []PageStatus{
	StatusOriginal, StatusNearDuplicate, StatusExactDuplicate, StatusSkipped, StatusFailed,
}

// statusOf classifies a page result.
func statusOf(res model.PageResult) PageStatus {
	rep := res.Report
	switch {
	case rep.HasError():
		return StatusFailed
	case rep.AnalysisSkipped:
		return StatusSkipped
	case len(rep.ExactDuplicates) > 0:
		return StatusExactDuplicate
	case len(rep.NearDuplicates) > 0:
		return StatusNearDuplicate
	default:
		return StatusOriginal
	}
}

// statusCounts counts page results per status.
func statusCounts(results []model.PageResult) map[PageStatus]int {
	counts := make(map[PageStatus]int, len(statusOrder))
	for _, res := range results {
		counts[statusOf(res)]++
	}
	return counts
}

// summaryOf returns the report summary, computing it if the report was not
// finished.
func summaryOf(report *model.AuditReport) *model.AuditSummary {
	if report.Summary != nil {
		return report.Summary
	}
	return model.NewAuditSummary(report.Results)
}

// indicatorRow is one indicator together with the page it was raised on.
type indicatorRow struct {
	url       string
	indicator model.RiskIndicator
}

// indicatorsBySeverity groups all indicators of the report by severity,
// keeping page order within a group.
func indicatorsBySeverity(report *model.AuditReport) map[model.Severity][]indicatorRow {
	groups := make(map[model.Severity][]indicatorRow)
	for _, res := range report.Results {
		for _, ind := range res.Report.Indicators {
			groups[ind.Severity] = append(groups[ind.Severity], indicatorRow{url: res.URL, indicator: ind})
		}
	}
	return groups
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// statusText describes how the audit ended.
func statusText(report *model.AuditReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT (partial results)"
	case report.ErrorMessage != "":
		return "ERROR - " + report.ErrorMessage
	default:
		return "Complete"
	}
}
