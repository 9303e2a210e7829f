// Package main provides the entry point for the dupescan CLI.
//
// dupescan fingerprints text content and reports exact and near duplicates
// together with a 0-100 originality score per page.
//
// Usage:
//
//	dupescan analyze ./docs
//	dupescan crawl https://example.com
//	dupescan history
//
// See --help for all available options.
package main

// main is the entry point for dupescan.
func main() {
	Execute()
}
