package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/dupescan/internal/corpus"
	"github.com/nao1215/dupescan/internal/fingerprint"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/originality"
	"github.com/nao1215/dupescan/internal/shingle"
	"github.com/nao1215/dupescan/internal/similarity"
	"github.com/nao1215/dupescan/internal/textnorm"
)

// Skip reasons recorded on reports.
const (
	ReasonInsufficientContent = "insufficient content"
	ReasonTimeout             = "timeout"
	ReasonCancelled           = "cancelled"
)

// Engine analyzes pages against a corpus.
// An Engine is immutable after New and safe for concurrent use.
type Engine struct {
	opts       Options
	thresholds similarity.Thresholds
	penalties  originality.Penalties
	fpOpts     fingerprint.Options
	logger     *slog.Logger
}

// prepared is the corpus-independent part of one page's analysis.
type prepared struct {
	pageID      string
	normalized  string
	fingerprint model.PageFingerprint
	uniqueness  model.UniquenessScores
	// deadline ends the page budget started in prepare; zero without Timeout.
	deadline time.Time
}

// New validates opts and returns an Engine.
// Every validation failure is a *ConfigurationError.
func New(opts Options, engineOpts ...Option) (*Engine, error) {
	if opts.ShingleSize <= 0 {
		return nil, &ConfigurationError{Field: "shingle size", Err: fmt.Errorf("%w: %d", ErrInvalidShingleSize, opts.ShingleSize)}
	}
	if opts.MinContentLength < 0 {
		return nil, &ConfigurationError{Field: "min content length", Err: fmt.Errorf("%w: %d", ErrInvalidMinContentLength, opts.MinContentLength)}
	}
	if opts.MinTokenLength < 0 {
		return nil, &ConfigurationError{Field: "min token length", Err: fmt.Errorf("%w: %d", ErrInvalidMinTokenLength, opts.MinTokenLength)}
	}
	if opts.ExactPenalty < 0 {
		return nil, &ConfigurationError{Field: "exact penalty", Err: fmt.Errorf("%w: %v", ErrInvalidPenalty, opts.ExactPenalty)}
	}
	if opts.NearPenalty < 0 {
		return nil, &ConfigurationError{Field: "near penalty", Err: fmt.Errorf("%w: %v", ErrInvalidPenalty, opts.NearPenalty)}
	}
	if opts.Timeout < 0 {
		return nil, &ConfigurationError{Field: "timeout", Err: fmt.Errorf("%w: %v", ErrInvalidTimeout, opts.Timeout)}
	}

	th := opts.Thresholds()
	if err := th.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "thresholds", Err: err}
	}

	hasher, err := fingerprint.Lookup(opts.HashAlgorithm)
	if err != nil {
		return nil, &ConfigurationError{Field: "hash algorithm", Err: err}
	}

	if opts.SubScorers == nil {
		opts.SubScorers = originality.DefaultSubScorers()
	}

	e := &Engine{
		opts:       opts,
		thresholds: th,
		penalties:  opts.Penalties(),
		fpOpts: fingerprint.Options{
			Hasher:           hasher,
			ShingleSize:      opts.ShingleSize,
			MinContentLength: opts.MinContentLength,
		},
	}
	for _, opt := range engineOpts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Options returns the validated configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// NewCorpus returns an empty corpus matching the engine's shingle size and
// hash algorithm. Use one corpus per audit session.
func (e *Engine) NewCorpus(opts ...corpus.Option) *corpus.Corpus {
	return corpus.New(e.opts.ShingleSize, e.opts.HashAlgorithm, opts...)
}

// Analyze fingerprints rawText, compares it with every other entry of c and
// stores it in c under pageID. It always returns a report.
//
// Analyzing a pageID that is already in the corpus replaces its entry; the
// old entry is not compared against.
func (e *Engine) Analyze(ctx context.Context, c *corpus.Corpus, pageID, rawText string) (report model.OriginalityReport) {
	defer e.recoverInto(pageID, &report)

	if err := e.checkCorpus(c); err != nil {
		return e.failed(pageID, err)
	}

	ctx, cancel := e.pageContext(ctx)
	defer cancel()

	p, rep, ok := e.prepare(ctx, pageID, rawText)
	if !ok {
		return rep
	}
	return e.commit(ctx, c, p)
}

// AnalyzeAll analyzes pages with up to concurrency workers and returns the
// reports in input order.
//
// Fingerprints are computed in parallel. Comparison and insertion then run
// in input order, so the result does not depend on scheduling: a later page
// is always the one reported as the duplicate of an earlier one. The
// per-page Timeout covers both phases together.
func (e *Engine) AnalyzeAll(ctx context.Context, c *corpus.Corpus, pages []model.PageInput, concurrency int) []model.OriginalityReport {
	reports := make([]model.OriginalityReport, len(pages))
	if err := e.checkCorpus(c); err != nil {
		for i, page := range pages {
			reports[i] = e.failed(page.ID, err)
		}
		return reports
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	preps := make([]*prepared, len(pages))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, page := range pages {
		g.Go(func() error {
			defer e.recoverInto(page.ID, &reports[i])

			pctx, cancel := e.pageContext(ctx)
			defer cancel()

			p, rep, ok := e.prepare(pctx, page.ID, page.Text)
			if ok {
				preps[i] = p
			} else {
				reports[i] = rep
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for i, p := range preps {
		if p == nil {
			continue
		}
		reports[i] = e.commitPrepared(ctx, c, p)
	}
	return reports
}

// commitPrepared runs the commit phase of AnalyzeAll with what is left of
// the page budget started in prepare.
func (e *Engine) commitPrepared(ctx context.Context, c *corpus.Corpus, p *prepared) (report model.OriginalityReport) {
	defer e.recoverInto(p.pageID, &report)

	var cancel context.CancelFunc
	if p.deadline.IsZero() {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithDeadline(ctx, p.deadline)
	}
	defer cancel()
	return e.commit(ctx, c, p)
}

// prepare runs the pure stages. When ok is false, the returned report is
// final and the corpus must not be touched.
func (e *Engine) prepare(ctx context.Context, pageID, rawText string) (*prepared, model.OriginalityReport, bool) {
	normalized := textnorm.Normalize(rawText)
	tokens := shingle.Tokenize(normalized, e.opts.MinTokenLength)
	shingles := shingle.Generate(tokens, e.opts.ShingleSize)

	fp, err := fingerprint.Build(normalized, shingles, e.fpOpts)
	if errors.Is(err, fingerprint.ErrInsufficientContent) {
		reason := fmt.Sprintf("%s: %d characters, %d shingles", ReasonInsufficientContent, len([]rune(normalized)), len(shingles))
		return nil, e.skipped(pageID, reason), false
	}
	if err != nil {
		return nil, e.failed(pageID, err), false
	}

	if err := ctx.Err(); err != nil {
		return nil, e.skipped(pageID, contextReason(err)), false
	}

	uniqueness := originality.Uniqueness(normalized, e.opts.SubScorers)

	if err := ctx.Err(); err != nil {
		return nil, e.skipped(pageID, contextReason(err)), false
	}

	deadline, _ := ctx.Deadline()
	return &prepared{
		pageID:      pageID,
		normalized:  normalized,
		fingerprint: fp,
		uniqueness:  uniqueness,
		deadline:    deadline,
	}, model.OriginalityReport{}, true
}

// commit compares p with the corpus and inserts it in one atomic step.
func (e *Engine) commit(ctx context.Context, c *corpus.Corpus, p *prepared) model.OriginalityReport {
	var results []model.SimilarityResult
	err := c.Commit(p.pageID, func(others []model.CorpusEntry) (*model.CorpusEntry, error) {
		res, err := similarity.CompareContext(ctx, p.fingerprint, p.pageID, others, e.thresholds)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = res
		return &model.CorpusEntry{
			URL:            p.pageID,
			NormalizedText: p.normalized,
			Fingerprint:    p.fingerprint,
		}, nil
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return e.skipped(p.pageID, contextReason(err))
	}
	if err != nil {
		return e.failed(p.pageID, err)
	}

	rep := originality.Score(results, p.uniqueness, e.penalties)
	rep.PageID = p.pageID
	rep.ContentHash = p.fingerprint.ContentHash
	rep.ShingleCount = p.fingerprint.ShingleCount

	e.logger.Debug("page analyzed",
		"page", p.pageID,
		"score", rep.OriginalityScore,
		"uniqueness", rep.Uniqueness.Score,
		"exact", len(rep.ExactDuplicates),
		"near", len(rep.NearDuplicates),
		"related", len(rep.Related),
	)
	return rep
}

// checkCorpus verifies that c can hold this engine's fingerprints.
func (e *Engine) checkCorpus(c *corpus.Corpus) error {
	if c == nil {
		return ErrNilCorpus
	}
	if c.ShingleSize() != e.opts.ShingleSize || c.Algorithm() != e.opts.HashAlgorithm {
		return fmt.Errorf("%w: corpus uses shingle size %d and %s, engine uses %d and %s",
			ErrCorpusMismatch, c.ShingleSize(), c.Algorithm(), e.opts.ShingleSize, e.opts.HashAlgorithm)
	}
	return nil
}

func (e *Engine) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// recoverInto turns a panic into a failed report.
func (e *Engine) recoverInto(pageID string, report *model.OriginalityReport) {
	if r := recover(); r != nil {
		*report = e.failed(pageID, fmt.Errorf("panic: %v", r))
	}
}

func (e *Engine) skipped(pageID, reason string) model.OriginalityReport {
	e.logger.Info("page skipped", "page", pageID, "reason", reason)
	rep := originality.Skipped(reason)
	rep.PageID = pageID
	return rep
}

func (e *Engine) failed(pageID string, err error) model.OriginalityReport {
	cerr := &ComputationError{PageID: pageID, Err: err}
	e.logger.Warn("page analysis failed", "page", pageID, "error", err)
	rep := originality.Failed(cerr)
	rep.PageID = pageID
	return rep
}

func contextReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCancelled
}
