package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/dupescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing, e.g. as a pull request comment on a documentation site.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := summaryOf(report)

	w.writeHeader(md, report, summary)
	w.writeSummary(md, report, summary)
	w.writeClusters(md, summary)
	w.writePages(md, report)
	w.writeIndicators(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch writes each report in turn.
func (w *MarkdownWriter) WriteBatch(reports []*model.AuditReport) (int, error) {
	return writeEach(reports, w.Write)
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport, summary *model.AuditSummary) {
	md.H1("Duplicate Content Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Audit ID", "`" + report.ID + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(summary.PagesTotal)},
			{"Shingles", fmt.Sprintf("%d words, %s", report.Settings.ShingleSize, report.Settings.HashAlgorithm)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.AuditReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the summary table, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport, summary *model.AuditSummary) {
	md.H2("Summary")
	md.PlainText("")

	mean := "-"
	if summary.PagesAnalyzed > 0 {
		mean = strconv.FormatFloat(summary.MeanOriginality, 'f', 1, 64)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages analyzed", strconv.Itoa(summary.PagesAnalyzed)},
			{"Pages skipped", strconv.Itoa(summary.PagesSkipped)},
			{"Pages failed", strconv.Itoa(summary.PagesFailed)},
			{"🔴 Exact duplicates", strconv.Itoa(summary.ExactDuplicatePages)},
			{"🟡 Near duplicates", strconv.Itoa(summary.NearDuplicatePages)},
			{"Mean originality", mean},
		},
	})
	md.PlainText("")

	if len(report.Results) > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of page statuses.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AuditReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Classification"),
		piechart.WithShowData(true),
	)

	counts := statusCounts(report.Results)
	for _, status := range statusOrder {
		if n := counts[status]; n > 0 {
			chart.LabelAndIntValue(string(status), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst finding.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.AuditSummary) {
	switch {
	case summary.ExactDuplicatePages > 0:
		md.Cautionf(
			"%d page(s) duplicate other pages exactly. Consolidate them or declare a canonical URL.",
			summary.ExactDuplicatePages,
		)
	case summary.NearDuplicatePages > 0:
		md.Warningf(
			"%d page(s) are near duplicates of other pages.",
			summary.NearDuplicatePages,
		)
	case summary.MediumCount > 0:
		md.Importantf(
			"%d medium severity indicator(s) found.",
			summary.MediumCount,
		)
	case summary.TotalIndicators() > 0:
		md.Note("Only low severity and informational indicators found.")
	default:
		md.Tip("No duplicate content detected.")
	}
	md.PlainText("")
}

// writeClusters lists groups of duplicated pages.
func (w *MarkdownWriter) writeClusters(md *markdown.Markdown, summary *model.AuditSummary) {
	if !summary.HasDuplicates() {
		return
	}

	md.H2("Duplicate Clusters")
	md.PlainText("")
	items := make([]string, len(summary.Clusters))
	for i, cluster := range summary.Clusters {
		quoted := make([]string, len(cluster))
		for j, url := range cluster {
			quoted[j] = "`" + url + "`"
		}
		items[i] = strings.Join(quoted, ", ")
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writePages writes one table row per page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No pages were collected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, res := range report.Results {
		rep := res.Report
		status := statusOf(res)
		score, uniqueness := "-", "-"
		if status != StatusSkipped && status != StatusFailed {
			score = strconv.Itoa(rep.OriginalityScore)
			uniqueness = strconv.FormatFloat(rep.Uniqueness.Score, 'f', 1, 64)
		}
		rows[i] = []string{
			truncateString(res.URL, 60),
			string(status),
			score,
			uniqueness,
			strconv.Itoa(len(rep.ExactDuplicates)),
			strconv.Itoa(len(rep.NearDuplicates)),
			strconv.Itoa(len(rep.Related)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Status", "Originality", "Uniqueness", "Exact", "Near", "Related"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeIndicators writes all indicators grouped by severity.
func (w *MarkdownWriter) writeIndicators(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Indicators")
	md.PlainText("")

	groups := indicatorsBySeverity(report)
	if len(groups) == 0 {
		md.PlainText("No originality indicators raised.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityHigh:   "### 🟠 High",
		model.SeverityMedium: "### 🟡 Medium",
		model.SeverityLow:    "### 🔵 Low",
		model.SeverityInfo:   "### ⚪ Info",
	}

	seen := make(map[string]bool)
	for _, severity := range severityOrder {
		rows := groups[severity]
		if len(rows) == 0 {
			continue
		}

		md.PlainText(headers[severity])
		md.PlainText("")

		table := make([][]string, len(rows))
		codes := make([]string, 0)
		for i, row := range rows {
			info := model.GetIndicatorInfo(row.indicator.Code)
			table[i] = []string{
				info.Title,
				truncateString(row.url, 50),
				truncateString(row.indicator.Message, 80),
			}
			if !seen[row.indicator.Code] {
				seen[row.indicator.Code] = true
				codes = append(codes, row.indicator.Code)
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Indicator", "Page", "Detail"},
			Rows:   table,
		})
		md.PlainText("")

		for _, code := range codes {
			info := model.GetIndicatorInfo(code)
			if info.Recommendation != "" {
				md.Details(info.Title, info.Recommendation)
			}
		}
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [dupescan](https://github.com/nao1215/dupescan)*")
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
