// Package database stores finished audits in SQLite (modernc.org/sqlite,
// CGO-free, WAL mode).
//
// Three tables are kept:
//   - audits: the full report JSON plus its summary, one row per session
//   - fingerprints: the latest content hash and score per (target, url), so
//     later audits can tell which pages changed
//   - duplicate_links: exact and near duplicate pairs per audit
//
// The history command reads from here; the engine never does. Each audit
// session still starts from an empty corpus.
package database
