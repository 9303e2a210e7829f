// Package log provides the slog setup used across dupescan.
//
// SecureHandler wraps any slog.Handler and, before a record is written:
//   - masks values of sensitive keys (Cookie, Authorization, tokens, sessions)
//   - masks values that look like credentials (JWT, bearer/basic auth, keys)
//   - truncates long string values to MaxValueLength runes
//
// Site configurations carry cookies and auth headers, and page text can be
// large; neither should end up verbatim in logs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("fetching page",
//	    "url", "https://example.com/",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	)
package log
