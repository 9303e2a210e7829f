package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/dupescan/internal/model"
)

// Step is one stage of an audit. Steps run in sequence and share the report:
// collection steps add pages, analysis steps add results.
type Step interface {
	// Do runs the step against report. A returned error marks the audit as
	// failed; problems with single pages belong in the page results instead.
	Do(ctx context.Context, report *model.AuditReport) error

	// Name identifies the step in logs and in report.PerformedSteps.
	Name() string
}

// Pipeline runs audit steps in order against one report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Steps built by CrawlPipeline and
// FilesPipeline share it.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after a step fails.
// A crawl that fails halfway still leaves pages worth analyzing.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against report.
//
// The context is checked before each step; once it is done the report is
// marked TimedOut and the remaining steps are skipped. A failing step is
// recorded as the report error. Without continue-on-error Execute returns
// that error right away; otherwise it carries on and returns nil.
func (p *Pipeline) Execute(ctx context.Context, report *model.AuditReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("audit interrupted",
				"step", step.Name(),
				"target", report.Target,
				"pages", len(report.Pages),
				"reason", err,
			)
			report.TimedOut = true
			return err
		}

		err := p.run(ctx, step, report)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
		if err == nil {
			continue
		}

		report.Error = err
		report.ErrorMessage = err.Error()
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// run executes one step and logs its outcome with the report size after it.
func (p *Pipeline) run(ctx context.Context, step Step, report *model.AuditReport) error {
	p.logger.Info("executing step", "step", step.Name(), "target", report.Target)

	start := time.Now()
	err := step.Do(ctx, report)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"target", report.Target,
			"elapsed", elapsed,
			"error", err,
		)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"target", report.Target,
		"elapsed", elapsed,
		"pages", len(report.Pages),
		"results", len(report.Results),
	)
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
