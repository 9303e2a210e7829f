package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/database"
	"github.com/nao1215/dupescan/internal/engine"
	"github.com/nao1215/dupescan/internal/fingerprint"
	"github.com/nao1215/dupescan/internal/log"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/report"
)

// ErrOriginalityBelowThreshold is returned when --fail-under is set and an
// analyzed page scores below it.
var ErrOriginalityBelowThreshold = errors.New("originality below threshold")

// addAuditFlags registers the flags shared by analyze and crawl.
func addAuditFlags(cmd *cobra.Command) {
	defaults := engine.DefaultOptions()

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dupescan in current or home directory)")

	// Engine flags; unset flags keep the config file value.
	cmd.Flags().Int("shingle-size", defaults.ShingleSize,
		"Number of words per shingle")
	cmd.Flags().Int("min-length", defaults.MinContentLength,
		"Minimum normalized content length in characters; shorter pages are skipped")
	cmd.Flags().Int("min-token-length", defaults.MinTokenLength,
		"Drop words shorter than this many characters (0 keeps all)")
	cmd.Flags().String("hash", defaults.HashAlgorithm,
		"Hash algorithm ("+strings.Join(fingerprint.Algorithms(), ", ")+")")
	cmd.Flags().Float64("exact", defaults.ExactThreshold,
		"Similarity at or above which pages are exact duplicates")
	cmd.Flags().Float64("near", defaults.NearThreshold,
		"Similarity at or above which pages are near duplicates")
	cmd.Flags().Float64("related", defaults.RelatedThreshold,
		"Similarity at or above which pages are reported as related")
	cmd.Flags().Float64("exact-penalty", defaults.ExactPenalty,
		"Score penalty applied once when any exact duplicate exists")
	cmd.Flags().Float64("near-penalty", defaults.NearPenalty,
		"Score penalty applied per near duplicate")
	cmd.Flags().Duration("page-timeout", defaults.Timeout,
		"Compute budget per page (0 for no limit)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fingerprinted concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Int("fail-under", 0,
		"Exit with an error when any analyzed page scores below this originality")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the audit in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
}

// getBoolFlag retrieves a bool flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the secure structured logger for a command.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	if getBoolFlag(cmd, "log-json") {
		return log.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return log.NewSecureLogger(os.Stderr, verbose)
}

// buildConfig creates a Config from the config file and cobra flags.
// Precedence: flag set on the command line > config file > built-in default.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config must exist; otherwise a missing file is fine.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	cfg.SiteConfigs.Originality.Apply(&cfg.Engine)

	if err := applyEngineFlags(flags, &cfg.Engine); err != nil {
		return nil, err
	}

	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.Targets = args

	return cfg, nil
}

// applyEngineFlags copies engine flags that were set on the command line.
func applyEngineFlags(flags *pflag.FlagSet, opts *engine.Options) error {
	ints := map[string]*int{
		"shingle-size":     &opts.ShingleSize,
		"min-length":       &opts.MinContentLength,
		"min-token-length": &opts.MinTokenLength,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	floats := map[string]*float64{
		"exact":         &opts.ExactThreshold,
		"near":          &opts.NearThreshold,
		"related":       &opts.RelatedThreshold,
		"exact-penalty": &opts.ExactPenalty,
		"near-penalty":  &opts.NearPenalty,
	}
	for name, dst := range floats {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("hash") {
		v, err := flags.GetString("hash")
		if err != nil {
			return err
		}
		opts.HashAlgorithm = v
	}
	if flags.Changed("page-timeout") {
		v, err := flags.GetDuration("page-timeout")
		if err != nil {
			return err
		}
		opts.Timeout = v
	}
	return nil
}

// commandContext returns the command context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newReportWriter selects the report writer for cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// outputReports writes the reports in the requested format to cfg.ReportFile,
// or to stdout when no file is set. A single report is written on its own;
// several are written as a batch.
func outputReports(cfg *config.Config, stdout io.Writer, reports []*model.AuditReport) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w := newReportWriter(cfg, output)
	if len(reports) == 1 {
		_, err := w.Write(reports[0])
		return err
	}
	_, err := w.WriteBatch(reports)
	return err
}

// saveReports stores finished audits in the history database.
// It is a no-op when saving is disabled.
func saveReports(ctx context.Context, cfg *config.Config, reports []*model.AuditReport, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	for _, r := range reports {
		if r == nil {
			continue
		}

		changed, err := db.ChangedPages(ctx, r)
		if err != nil {
			logger.Warn("failed to compare with previous audit", "target", r.Target, "error", err)
		} else {
			logger.Info("pages changed since last audit", "target", r.Target, "changed", len(changed))
		}

		if err := db.SaveReport(ctx, r); err != nil {
			return fmt.Errorf("failed to save audit report: %w", err)
		}
		logger.Info("audit report saved to database", "target", r.Target, "audit_id", r.ID)
	}
	return nil
}

// checkFailUnder returns ErrOriginalityBelowThreshold if an analyzed page
// scores below threshold. A threshold of zero disables the check.
func checkFailUnder(reports []*model.AuditReport, threshold int) error {
	if threshold <= 0 {
		return nil
	}

	var low []string
	for _, r := range reports {
		if r == nil {
			continue
		}
		for _, res := range r.Results {
			rep := res.Report
			if rep.AnalysisSkipped || rep.HasError() {
				continue
			}
			if rep.OriginalityScore < threshold {
				low = append(low, fmt.Sprintf("%s (%d)", res.URL, rep.OriginalityScore))
			}
		}
	}

	if len(low) == 0 {
		return nil
	}
	return fmt.Errorf("%w %d: %s", ErrOriginalityBelowThreshold, threshold, strings.Join(low, ", "))
}

// finishAudit writes, stores and checks finished reports.
func finishAudit(ctx context.Context, cmd *cobra.Command, cfg *config.Config, reports []*model.AuditReport, logger *slog.Logger) error {
	if err := outputReports(cfg, cmd.OutOrStdout(), reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := saveReports(ctx, cfg, reports, logger); err != nil {
		logger.Error("failed to save audit report", "error", err)
	}

	threshold, err := cmd.Flags().GetInt("fail-under")
	if err != nil {
		return err
	}
	return checkFailUnder(reports, threshold)
}
