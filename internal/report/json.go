package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/dupescan/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report as one JSON object.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	ensureSummary(report)
	return w.writeJSON(report)
}

// WriteBatch outputs the reports as one JSON array.
func (w *JSONWriter) WriteBatch(reports []*model.AuditReport) (int, error) {
	out := make([]*model.AuditReport, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		ensureSummary(r)
		out = append(out, r)
	}
	return w.writeJSON(out)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}

// ensureSummary fills in the summary of reports that were not finished,
// e.g. after a failed step.
func ensureSummary(report *model.AuditReport) {
	if report.Summary == nil {
		report.Summary = model.NewAuditSummary(report.Results)
	}
}

// JSONReport wraps an audit report with the version of the tool that
// produced it.
type JSONReport struct {
	// Version is the dupescan version that generated this report.
	Version string `json:"version"`

	// Report is the full audit report.
	Report *model.AuditReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.AuditReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Report:  report,
	}
}

// FullJSONWriter outputs reports wrapped with metadata.
type FullJSONWriter struct {
	*JSONWriter

	// version is the dupescan version string.
	version string
}

// NewFullJSONWriter creates a writer for reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.AuditReport) (int, error) {
	ensureSummary(report)
	return w.writeJSON(NewJSONReport(report, w.version))
}

// WriteBatch outputs the wrapped reports as one JSON array.
func (w *FullJSONWriter) WriteBatch(reports []*model.AuditReport) (int, error) {
	out := make([]*JSONReport, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		ensureSummary(r)
		out = append(out, NewJSONReport(r, w.version))
	}
	return w.writeJSON(out)
}
