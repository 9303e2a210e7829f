// Package model defines the core data structures shared across dupescan.
//
// This package contains the following main types:
//   - Page: A document collected for analysis (crawled or loaded from disk)
//   - PageFingerprint / CorpusEntry: Content signatures held by a corpus
//   - SimilarityResult: One classified comparison between two pages
//   - OriginalityReport: The per-page result of the duplicate-detection engine
//   - AuditReport: All page results of one audit session plus a summary
//
// Models live in their own package so that the engine, pipeline, report and
// database packages can share them without import cycles. All report types
// are serializable to JSON for report output and database storage.
package model
