package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/engine"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl sites and find duplicate pages",
		Long: `Crawl follows same-host links from each start URL, extracts the main text of
every page and compares the pages of a site against each other.

Each site is its own audit: pages are only compared with pages of the same
site. Several sites are crawled concurrently (see --batch).

Examples:
  # Audit a single site
  dupescan crawl https://docs.example.com

  # Audit several sites, two at a time, up to 500 pages each
  dupescan crawl -b 2 -p 500 https://a.example.com https://b.example.com

  # Crawl through a SOCKS5 proxy
  dupescan crawl --proxy 127.0.0.1:1080 https://example.com

  # Output JSON report
  dupescan crawl --json https://example.com

Configuration file (.dupescan) example:
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/print/*"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	addAuditFlags(cmd)

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl recursion depth")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to collect per site")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests to one site")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, crawlErr := runCrawl(ctx, cfg, logger, cmd.ErrOrStderr())
	if len(reports) == 0 {
		return crawlErr
	}

	if err := finishAudit(ctx, cmd, cfg, reports, logger); err != nil {
		return err
	}
	return crawlErr
}

// buildCrawlConfig extends buildConfig with the crawl flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// crawlPipelineConfig converts the global settings into pipeline settings.
func crawlPipelineConfig(cfg *config.Config) pipeline.CrawlPipelineConfig {
	pc := pipeline.NewCrawlPipelineConfig()
	pc.ProxyAddress = cfg.ProxyAddress
	pc.Timeout = cfg.Timeout
	pc.CrawlDepth = cfg.CrawlDepth
	pc.CrawlMaxPages = cfg.MaxPages
	pc.CrawlDelay = cfg.CrawlDelay
	pc.UserAgent = cfg.UserAgent
	pc.MaxBodySize = cfg.MaxBodySize
	pc.Workers = cfg.Workers
	return pc
}

// siteHost returns the host name used to look up site settings.
// Targets without a scheme are treated as https URLs.
func siteHost(target string) string {
	raw := target
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return target
	}
	return strings.ToLower(u.Hostname())
}

// newCrawlFactory returns a pipeline factory that applies the site settings
// of each target.
func newCrawlFactory(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) pipeline.Factory {
	base := crawlPipelineConfig(cfg)
	return func(target string) (*pipeline.Pipeline, error) {
		pc := base
		if cfg.SiteConfigs != nil {
			pc = base.ForSite(cfg.SiteConfigs.GetSiteConfig(siteHost(target)))
		}
		return pipeline.CrawlPipeline(eng, pc,
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		)
	}
}

// runCrawl audits every target and returns the finished reports in input
// order. Targets that never started because ctx ended are left out.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) ([]*model.AuditReport, error) {
	eng, err := engine.New(cfg.Engine, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	bp := pipeline.NewBatchProcessor(
		newCrawlFactory(eng, cfg, logger),
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results := make([]*model.AuditReport, len(cfg.Targets))

	var mu sync.Mutex
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.AuditReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = r
		status := "done"
		if r.ErrorMessage != "" {
			status = "error: " + r.ErrorMessage
		}
		fmt.Fprintf(progress, "[%d/%d] %s: %d pages (%s)\n",
			index+1, len(cfg.Targets), r.Target, len(r.Results), status)
	})

	fmt.Fprintf(progress, "Crawled %d site(s) in %s\n\n",
		len(cfg.Targets), time.Since(startTime).Round(time.Millisecond))

	reports := make([]*model.AuditReport, 0, len(results))
	for _, r := range results {
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports, err
}
