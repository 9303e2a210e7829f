// Package engine is the duplicate-detection entry point.
//
// An Engine holds a validated configuration. Analyze runs one page through
// the full flow:
//
//	raw text -> textnorm.Normalize -> shingle.Tokenize/Generate
//	         -> fingerprint.Build -> corpus.Commit(similarity.Compare)
//	         -> originality.Score -> model.OriginalityReport
//
// Everything up to the fingerprint is pure and runs outside any lock. The
// comparison against the corpus and the insert of the new entry happen as
// one atomic step under the corpus mutex, so two pages analyzed concurrently
// always see each other in one direction.
//
// Analyze never returns an error. Short pages produce a skipped report,
// timeouts and cancellation produce a skipped report without touching the
// corpus, and unexpected failures (including panics) produce a report with a
// zero score and the error message.
package engine
