// Package config provides configuration structures and utilities for dupescan.
// It defines crawl and output settings, the duplicate-detection engine
// options, and the optional .dupescan YAML file with engine overrides and
// per-site crawl settings.
package config
