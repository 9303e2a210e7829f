package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/dupescan/internal/engine"
	"github.com/nao1215/dupescan/internal/transport"
)

// Default configuration values.
const (
	// DefaultTimeout is the timeout for a single HTTP request while crawling.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth limits how many links away from the start URL the
	// crawler goes.
	DefaultCrawlDepth = 3

	// DefaultMaxPages is the maximum number of pages collected per site.
	// Every page is compared against every other page of the session, so
	// this also bounds the quadratic comparison cost.
	DefaultMaxPages = 200

	// DefaultBatchSize is the number of sites audited concurrently.
	DefaultBatchSize = 4

	// DefaultWorkers is the number of pages fingerprinted concurrently
	// within one site.
	DefaultWorkers = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "dupescan"

	// DefaultCrawlDelay is the minimum interval between requests to a site.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies dupescan in HTTP requests.
	DefaultUserAgent = "dupescan/1.0 (+https://github.com/nao1215/dupescan)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for dupescan.
// It is populated from the config file and CLI flags and passed down
// explicitly; there is no global configuration.
type Config struct {
	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// When empty, requests go out directly.
	ProxyAddress string

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// CrawlDepth is the maximum link depth. Depth 0 fetches only the start page.
	CrawlDepth int

	// MaxPages is the maximum number of pages collected per site.
	MaxPages int

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of targets audited concurrently.
	BatchSize int

	// Workers is the number of pages fingerprinted concurrently per target.
	Workers int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .dupescan is searched in the current directory, then in the
	// home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File

	// Engine is the duplicate-detection configuration.
	Engine engine.Options

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// Targets are the URLs (crawl) or paths (analyze) to audit.
	Targets []string

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/dupescan on Linux).
	DBDir string

	// SaveToDB stores finished audits in the history database.
	SaveToDB bool

	// CrawlDelay is the minimum interval between requests to one site.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		CrawlDepth:  DefaultCrawlDepth,
		MaxPages:    DefaultMaxPages,
		BatchSize:   DefaultBatchSize,
		Workers:     DefaultWorkers,
		Engine:      engine.DefaultOptions(),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
		CrawlDelay:  DefaultCrawlDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for dupescan.
// On Linux: ~/.local/share/dupescan
// On macOS: ~/Library/Application Support/dupescan
// On Windows: %LOCALAPPDATA%\dupescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for dupescan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found. Engine options are validated by engine.New.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ProxyAddress != "" && !transport.IsValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	return nil
}
