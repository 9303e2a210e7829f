package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/crawler"
	"github.com/nao1215/dupescan/internal/engine"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/textnorm"
	"github.com/nao1215/dupescan/internal/transport"
)

// textExtensions are read as plain text by LoadFilesStep.
var textExtensions = map[string]bool{".txt": true, ".text": true, ".md": true, ".markdown": true}

// htmlExtensions go through textnorm.ExtractHTML.
var htmlExtensions = map[string]bool{".html": true, ".htm": true, ".xhtml": true}

// LoadFilesStep collects pages from local files.
// Directories are walked recursively; files are added in lexical path order
// so that repeated runs analyze them in the same order.
type LoadFilesStep struct {
	paths       []string
	maxFileSize int64
	logger      *slog.Logger
}

// LoadFilesStepOption configures a LoadFilesStep.
type LoadFilesStepOption func(*LoadFilesStep)

// WithLoadMaxFileSize sets the largest file read; bigger files are skipped.
func WithLoadMaxFileSize(size int64) LoadFilesStepOption {
	return func(s *LoadFilesStep) {
		s.maxFileSize = size
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadFilesStepOption {
	return func(s *LoadFilesStep) {
		s.logger = logger
	}
}

// NewLoadFilesStep creates a step that loads the given files and directories.
func NewLoadFilesStep(paths []string, opts ...LoadFilesStepOption) *LoadFilesStep {
	s := &LoadFilesStep{
		paths:       paths,
		maxFileSize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LoadFilesStep) Name() string {
	return "load_files"
}

// Do reads every supported file below the configured paths.
// A path that does not exist fails the step. Files that cannot be read or
// are not valid UTF-8 text are logged and skipped.
func (s *LoadFilesStep) Do(ctx context.Context, report *model.AuditReport) error {
	files, err := s.collect()
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.load(file)
		if err != nil {
			s.logger.Warn("skipping file", "path", file, "error", err)
			continue
		}
		report.AddPages(page)
	}

	s.logger.Info("files loaded", "files", len(files), "pages", len(report.Pages))
	return nil
}

// collect expands the configured paths into a sorted, de-duplicated file list.
// Explicitly named files are taken regardless of extension.
func (s *LoadFilesStep) collect() ([]string, error) {
	seen := make(map[string]bool)
	files := make([]string, 0)
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range s.paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if d.Type().IsRegular() && (textExtensions[ext] || htmlExtensions[ext]) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// load reads one file into a page.
func (s *LoadFilesStep) load(path string) (*model.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	raw, err := os.ReadFile(path) //nolint:gosec // paths are chosen by the user
	if err != nil {
		return nil, err
	}

	page := &model.Page{URL: path, ContentType: "text/plain; charset=utf-8"}
	page.ComputeHash(raw)

	if htmlExtensions[strings.ToLower(filepath.Ext(path))] {
		doc, err := textnorm.ExtractHTML(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		page.ContentType = "text/html; charset=utf-8"
		page.Title = doc.Title
		page.Text = doc.Text
	} else {
		if !utf8.Valid(raw) {
			return nil, ErrNotText
		}
		page.Text = string(raw)
	}

	page.TruncateText()
	return page, nil
}

// CrawlStep collects pages by crawling the report's target URL.
type CrawlStep struct {
	// client carries proxy, cookie, header and User-Agent settings.
	client *http.Client

	maxDepth       int
	maxPages       int
	delay          time.Duration
	maxBodySize    int64
	ignorePatterns []string
	followPatterns []string

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to collect.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the minimum interval between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		delay:       config.DefaultCrawlDelay,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls report.Target and adds the collected pages.
// Pages collected before a cancellation or failure are kept.
func (s *CrawlStep) Do(ctx context.Context, report *model.AuditReport) error {
	spider := crawler.NewSpider(s.client,
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithMaxBodySize(s.maxBodySize),
		crawler.WithIgnorePatterns(s.ignorePatterns),
		crawler.WithFollowPatterns(s.followPatterns),
		crawler.WithSpiderLogger(s.logger),
	)

	pages, err := spider.Crawl(ctx, report.Target)
	report.AddPages(pages...)

	stats := spider.Stats()
	s.logger.Info("crawl completed",
		"target", report.Target,
		"pages_collected", stats.PagesCollected,
		"urls_visited", stats.URLsVisited,
	)

	if err != nil {
		return fmt.Errorf("crawl %s: %w", report.Target, err)
	}
	return nil
}

// OriginalityStep analyzes the collected pages against each other.
// Every run starts a fresh corpus, so one report is one audit session.
type OriginalityStep struct {
	engine  *engine.Engine
	workers int
	logger  *slog.Logger
}

// OriginalityStepOption configures an OriginalityStep.
type OriginalityStepOption func(*OriginalityStep)

// WithWorkers sets how many pages are fingerprinted concurrently.
func WithWorkers(n int) OriginalityStepOption {
	return func(s *OriginalityStep) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithOriginalityLogger sets a custom logger for the originality step.
func WithOriginalityLogger(logger *slog.Logger) OriginalityStepOption {
	return func(s *OriginalityStep) {
		s.logger = logger
	}
}

// NewOriginalityStep creates the analysis step.
func NewOriginalityStep(eng *engine.Engine, opts ...OriginalityStepOption) *OriginalityStep {
	s := &OriginalityStep{
		engine:  eng,
		workers: config.DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *OriginalityStep) Name() string {
	return "originality"
}

// Do runs the engine over report.Pages in collection order.
func (s *OriginalityStep) Do(ctx context.Context, report *model.AuditReport) error {
	report.Settings = s.engine.Options().Settings()

	inputs := make([]model.PageInput, len(report.Pages))
	for i, page := range report.Pages {
		inputs[i] = model.PageInput{ID: page.URL, Text: page.Text}
	}

	c := s.engine.NewCorpus()
	reports := s.engine.AnalyzeAll(ctx, c, inputs, s.workers)

	results := make([]model.PageResult, len(reports))
	for i, rep := range reports {
		page := report.Pages[i]
		results[i] = model.PageResult{
			URL:       page.URL,
			Title:     page.Title,
			WordCount: len(strings.Fields(page.Text)),
			Report:    rep,
		}
	}
	report.SetResults(results)

	s.logger.Info("originality analysis completed",
		"target", report.Target,
		"pages", len(results),
		"corpus_size", c.Len(),
	)
	return nil
}

// SummaryStep finalizes the report.
type SummaryStep struct{}

// Name returns the step name.
func (SummaryStep) Name() string {
	return "summary"
}

// Do computes the summary and stamps the finish time.
func (SummaryStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Finish()
	return nil
}

// CrawlPipelineConfig holds configuration for the crawl pipeline.
type CrawlPipelineConfig struct {
	// ProxyAddress is an optional SOCKS5 proxy.
	ProxyAddress string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// CrawlDepth is the maximum depth for web crawling.
	CrawlDepth int

	// CrawlMaxPages is the maximum number of pages to collect.
	CrawlMaxPages int

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// IgnorePatterns are URL path patterns to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path patterns to follow during crawling.
	FollowPatterns []string

	// CrawlDelay is the minimum interval between requests.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Workers is the number of pages fingerprinted concurrently.
	Workers int
}

// NewCrawlPipelineConfig returns a CrawlPipelineConfig with the defaults
// from package config.
func NewCrawlPipelineConfig() CrawlPipelineConfig {
	return CrawlPipelineConfig{
		Timeout:       config.DefaultTimeout,
		CrawlDepth:    config.DefaultCrawlDepth,
		CrawlMaxPages: config.DefaultMaxPages,
		CrawlDelay:    config.DefaultCrawlDelay,
		UserAgent:     config.DefaultUserAgent,
		MaxBodySize:   config.DefaultMaxBodySize,
		Workers:       config.DefaultWorkers,
	}
}

// ForSite returns a copy of c with site applied over it.
// Zero-valued site fields keep the global values.
func (c CrawlPipelineConfig) ForSite(site config.SiteConfig) CrawlPipelineConfig {
	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		c.Headers = site.Headers
	}
	if site.Depth > 0 {
		c.CrawlDepth = site.Depth
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		c.FollowPatterns = site.FollowPatterns
	}
	return c
}

// CrawlPipeline builds the pipeline that crawls a site and analyzes its pages.
func CrawlPipeline(eng *engine.Engine, cfg CrawlPipelineConfig, pipelineOpts ...Option) (*Pipeline, error) {
	p := New(pipelineOpts...)

	client, err := transport.NewHTTPClient(transport.Options{
		ProxyAddress: cfg.ProxyAddress,
		Timeout:      cfg.Timeout,
		UserAgent:    cfg.UserAgent,
		Cookie:       cfg.Cookie,
		Headers:      cfg.Headers,
	})
	if err != nil {
		return nil, err
	}

	p.AddSteps(
		NewCrawlStep(client,
			WithCrawlMaxDepth(cfg.CrawlDepth),
			WithCrawlMaxPages(cfg.CrawlMaxPages),
			WithCrawlDelay(cfg.CrawlDelay),
			WithCrawlMaxBodySize(cfg.MaxBodySize),
			WithCrawlIgnorePatterns(cfg.IgnorePatterns),
			WithCrawlFollowPatterns(cfg.FollowPatterns),
			WithCrawlLogger(p.logger),
		),
		NewOriginalityStep(eng, WithWorkers(cfg.Workers), WithOriginalityLogger(p.logger)),
		SummaryStep{},
	)

	return p, nil
}

// FilesPipeline builds the pipeline that loads local files and analyzes them.
func FilesPipeline(eng *engine.Engine, paths []string, workers int, pipelineOpts ...Option) *Pipeline {
	p := New(pipelineOpts...)
	p.AddSteps(
		NewLoadFilesStep(paths, WithLoadLogger(p.logger)),
		NewOriginalityStep(eng, WithWorkers(workers), WithOriginalityLogger(p.logger)),
		SummaryStep{},
	)
	return p
}
