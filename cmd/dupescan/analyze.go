package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/engine"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/pipeline"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Find duplicate content among local files",
		Long: `Analyze reads text, Markdown and HTML files and compares every file against
every other file of the same run.

Directories are walked recursively (hidden directories are skipped) and
files are analyzed in sorted path order. Files named explicitly are read
regardless of their extension.

Examples:
  # Analyze a documentation tree
  dupescan analyze ./docs

  # Analyze selected files with 4-word shingles
  dupescan analyze --shingle-size 4 a.md b.md c.html

  # Fail in CI when any page scores below 60
  dupescan analyze --fail-under 60 --no-save ./content

  # Output a Markdown report
  dupescan analyze -m -o report.md ./docs`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	addAuditFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditReport, err := runAnalyze(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return finishAudit(ctx, cmd, cfg, []*model.AuditReport{auditReport}, logger)
}

// runAnalyze runs one audit session over the configured paths.
func runAnalyze(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.AuditReport, error) {
	eng, err := engine.New(cfg.Engine, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger.Info("starting analysis",
		"paths", cfg.Targets,
		"workers", cfg.Workers,
		"shingle_size", cfg.Engine.ShingleSize,
	)

	p := pipeline.FilesPipeline(eng, cfg.Targets, cfg.Workers, pipeline.WithLogger(logger))

	auditReport := model.NewAuditReport(strings.Join(cfg.Targets, " "))
	if err := p.Execute(ctx, auditReport); err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	return auditReport, nil
}
