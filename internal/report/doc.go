// Package report renders audit reports.
//
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter / FullJSONWriter: JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid chart of page
//     classifications
//
// Writers implement the Writer interface and can be combined with
// MultiWriter. The report data itself lives in package model.
package report
