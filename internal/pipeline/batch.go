package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/dupescan/internal/model"
)

// Factory builds the pipeline for one target. It is called once per target
// so that every audit gets its own steps, HTTP client and corpus.
type Factory func(target string) (*Pipeline, error)

// BatchProcessor audits several targets concurrently.
// Targets never share a corpus: a page on one site is not compared with pages
// on another.
type BatchProcessor struct {
	factory Factory

	// concurrency is the maximum number of concurrent audits.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits every target and returns their reports in input order.
// A failing audit does not stop the others; its error is recorded in its
// report. The returned error is non-nil only when ctx ends the batch early,
// in which case targets that never started have no report (nil entries).
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.AuditReport, error) {
	results := make([]*model.AuditReport, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.AuditReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback audits targets and calls callback as each audit
// completes. The callback runs on the goroutine that ran the audit and must
// be safe for concurrent use; each index is reported at most once.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.AuditReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewAuditReport(target)
			p, err := bp.factory(target)
			if err != nil {
				report.Error = err
				report.ErrorMessage = err.Error()
				report.Finish()
			} else {
				err = p.Execute(ctx, report)
			}

			if err != nil {
				bp.logger.Warn("audit failed",
					"target", target,
					"error", err,
				)
			} else {
				bp.logger.Info("audit completed", "target", target)
			}

			// Errors are recorded in the report; the other audits go on.
			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
