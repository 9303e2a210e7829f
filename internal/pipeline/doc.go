// Package pipeline runs an audit as a sequence of steps over one
// model.AuditReport.
//
// A crawl audit is CrawlStep, OriginalityStep, SummaryStep; a local audit
// replaces the crawl with LoadFilesStep. OriginalityStep owns the content
// corpus of the session, so pages are only compared with pages of the same
// report.
//
// BatchProcessor runs several audits concurrently (errgroup with a limit),
// one pipeline and one corpus per target.
package pipeline
