package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/dupescan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose lists every page, including original ones, and prints
	// sub-scores and recommendations.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	summary := summaryOf(report)
	w.writeHeader(&sb, report, summary)
	w.writeSummary(&sb, summary)
	w.writeClusters(&sb, summary)
	w.writePages(&sb, report)
	w.writeIndicators(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteBatch writes each report in turn.
func (w *SimpleWriter) WriteBatch(reports []*model.AuditReport) (int, error) {
	return writeEach(reports, w.Write)
}

func rule(sb *strings.Builder, c string) {
	sb.WriteString(strings.Repeat(c, 70))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	rule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	rule(sb, "-")
	sb.WriteString("\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport, summary *model.AuditSummary) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                    DUPLICATE CONTENT REPORT\n")
	rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Target:     %s\n", report.Target)
	fmt.Fprintf(sb, "Audit ID:   %s\n", report.ID)
	fmt.Fprintf(sb, "Scan Date:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	if !report.DateFinished.IsZero() {
		fmt.Fprintf(sb, "Duration:   %s\n", report.DateFinished.Sub(report.DateScanned).Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Pages:      %s\n", humanize.Comma(int64(summary.PagesTotal)))
	fmt.Fprintf(sb, "Status:     %s\n", statusText(report))
	fmt.Fprintf(sb, "Settings:   %d-word shingles, %s, exact >= %.2f, near >= %.2f\n",
		report.Settings.ShingleSize, report.Settings.HashAlgorithm,
		report.Settings.ExactThreshold, report.Settings.NearThreshold)
	sb.WriteString("\n")
}

// writeSummary writes the count summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.AuditSummary) {
	section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  ANALYZED:          %d\n", summary.PagesAnalyzed)
	fmt.Fprintf(sb, "  SKIPPED:           %d\n", summary.PagesSkipped)
	fmt.Fprintf(sb, "  FAILED:            %d\n", summary.PagesFailed)
	fmt.Fprintf(sb, "  EXACT DUPLICATES:  %d\n", summary.ExactDuplicatePages)
	fmt.Fprintf(sb, "  NEAR DUPLICATES:   %d\n", summary.NearDuplicatePages)
	if summary.PagesAnalyzed > 0 {
		fmt.Fprintf(sb, "  MEAN ORIGINALITY:  %.1f\n", summary.MeanOriginality)
		fmt.Fprintf(sb, "  MIN ORIGINALITY:   %d\n", summary.MinOriginality)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  INDICATORS:        %d (high %d, medium %d, low %d, info %d)\n",
		summary.TotalIndicators(), summary.HighCount, summary.MediumCount, summary.LowCount, summary.InfoCount)
	sb.WriteString("\n")
}

// writeClusters lists groups of duplicated pages.
func (w *SimpleWriter) writeClusters(sb *strings.Builder, summary *model.AuditSummary) {
	if !summary.HasDuplicates() && !w.showEmpty {
		return
	}

	section(sb, "DUPLICATE CLUSTERS")
	if !summary.HasDuplicates() {
		sb.WriteString("  No duplicate clusters\n\n")
		return
	}
	for i, cluster := range summary.Clusters {
		fmt.Fprintf(sb, "  [%d] %d pages\n", i+1, len(cluster))
		for _, url := range cluster {
			fmt.Fprintf(sb, "      %s\n", url)
		}
	}
	sb.WriteString("\n")
}

// writePages lists page scores. Without verbose only pages that are not
// plainly original are listed.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.AuditReport) {
	rows := make([]model.PageResult, 0, len(report.Results))
	for _, res := range report.Results {
		if w.verbose || statusOf(res) != StatusOriginal {
			rows = append(rows, res)
		}
	}
	if len(rows) == 0 && !w.showEmpty {
		return
	}

	section(sb, "PAGES")
	if len(rows) == 0 {
		sb.WriteString("  No pages to show\n\n")
		return
	}

	for _, res := range rows {
		rep := res.Report
		status := statusOf(res)
		fmt.Fprintf(sb, "  * %s\n", res.URL)
		switch status {
		case StatusFailed:
			fmt.Fprintf(sb, "    Status: %s (%s)\n", status, rep.Error)
			continue
		case StatusSkipped:
			fmt.Fprintf(sb, "    Status: %s (%s)\n", status, rep.SkipReason)
			continue
		}

		fmt.Fprintf(sb, "    Status: %s   Originality: %d   Uniqueness: %.1f   Words: %s\n",
			status, rep.OriginalityScore, rep.Uniqueness.Score, humanize.Comma(int64(res.WordCount)))
		for _, d := range rep.ExactDuplicates {
			fmt.Fprintf(sb, "    = %s (%.1f%%)\n", d.OtherURL, d.Similarity*100)
		}
		for _, d := range rep.NearDuplicates {
			fmt.Fprintf(sb, "    ~ %s (%.1f%%)\n", d.OtherURL, d.Similarity*100)
		}
		if w.verbose {
			for _, d := range rep.Related {
				fmt.Fprintf(sb, "    . %s (%.1f%%)\n", d.OtherURL, d.Similarity*100)
			}
			fmt.Fprintf(sb, "    Lexical: %.2f   Structural: %.2f   Pattern: %.2f\n",
				rep.Uniqueness.Lexical, rep.Uniqueness.Structural, rep.Uniqueness.Pattern)
		}
	}
	sb.WriteString("\n")
}

// writeIndicators writes all indicators grouped by severity.
func (w *SimpleWriter) writeIndicators(sb *strings.Builder, report *model.AuditReport) {
	groups := indicatorsBySeverity(report)
	if len(groups) == 0 && !w.showEmpty {
		return
	}

	section(sb, "INDICATORS")

	for _, severity := range severityOrder {
		rows := groups[severity]
		if len(rows) == 0 && !w.showEmpty {
			continue
		}

		fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(severity), severity.String())
		if len(rows) == 0 {
			sb.WriteString("  No indicators\n\n")
			continue
		}
		for _, row := range rows {
			info := model.GetIndicatorInfo(row.indicator.Code)
			fmt.Fprintf(sb, "  * %s: %s\n", info.Title, row.url)
			fmt.Fprintf(sb, "    %s\n", row.indicator.Message)
			if w.verbose && info.Recommendation != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", info.Recommendation)
			}
		}
		sb.WriteString("\n")
	}
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	rule(sb, "=")
	sb.WriteString("Report generated by dupescan\n")
	sb.WriteString("https://github.com/nao1215/dupescan\n")
	rule(sb, "=")
}
