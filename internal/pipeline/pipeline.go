// Package pipeline drives a document from file path to normalized
// transactions: extract pages, classify, resolve a parser, parse, normalize.
// Every failure is contained to its document; a batch never aborts because
// one statement is corrupt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bancosreader/extractor/internal/classify"
	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/normalize"
	"github.com/bancosreader/extractor/internal/registry"
	"github.com/bancosreader/extractor/internal/source"
)

// Status summarizes how a document fared.
type Status string

const (
	// StatusSuccess means every reconstructed record normalized cleanly.
	StatusSuccess Status = "success"
	// StatusPartial means transactions were produced but some records were
	// rejected; RecordErrors lists them.
	StatusPartial Status = "partial"
	// StatusSkipped means the document was readable but not recognized, or
	// recognized with no parser registered.
	StatusSkipped Status = "skipped"
	// StatusFailed means extraction or parsing broke down entirely.
	StatusFailed Status = "failed"
)

// DocumentResult is everything the pipeline learned about one document.
type DocumentResult struct {
	ID           string
	Path         string
	Status       Status
	Identity     models.Identity
	Metadata     *models.Metadata
	Transactions []models.Transaction
	RecordErrors []models.FieldError
	// DroppedFragments counts positioned fragments the reconstructor could
	// not place in any column.
	DroppedFragments int
	Err              error
}

// Options configure a Pipeline.
type Options struct {
	// Open produces a Source per document. Defaults to source.OpenPDF.
	Open source.Opener
	// OCR, when set, is tried for documents whose native text fails the
	// readability gate. Nil disables the fallback.
	OCR source.Opener
	// Force, when non-nil, skips classification and uses this identity for
	// every document.
	Force *models.Identity
	// Workers bounds batch concurrency. Zero or negative means 1.
	Workers int
}

// Pipeline processes statements against a fixed classifier and registry.
// Safe for concurrent use.
type Pipeline struct {
	classifier *classify.Classifier
	registry   *registry.Registry
	opts       Options
	log        zerolog.Logger
}

// New assembles a pipeline.
func New(c *classify.Classifier, r *registry.Registry, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Open == nil {
		opts.Open = source.OpenPDF
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{classifier: c, registry: r, opts: opts, log: log}
}

// Process runs one document end to end. It never panics and never returns an
// error: every outcome, including total failure, is reported in the result so
// batch callers treat all documents uniformly.
func (p *Pipeline) Process(ctx context.Context, path string) (res *DocumentResult) {
	res = &DocumentResult{ID: uuid.NewString(), Path: path, Status: StatusFailed}
	log := p.log.With().Str("doc", res.ID).Str("path", path).Logger()

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = &models.DocumentError{Path: path, Err: fmt.Errorf("panic: %v", r)}
			log.Error().Interface("panic", r).Msg("document processing panicked")
		}
	}()

	pages, err := p.extract(ctx, path, log)
	if err != nil {
		res.Err = &models.DocumentError{Path: path, Err: err}
		log.Warn().Err(err).Msg("extraction failed")
		return res
	}

	id, text := p.identify(pages)
	res.Identity = id
	if id.Unknown() {
		res.Status = StatusSkipped
		excerpt := textSnippet(text)
		res.Err = &models.DocumentError{Path: path, Err: fmt.Errorf("%w: %s", models.ErrUnclassified, excerpt)}
		log.Info().Str("excerpt", excerpt).Msg("document not recognized, skipped")
		return res
	}
	log.Debug().
		Str("institution", id.Institution).
		Str("product", string(id.Product)).
		Float64("confidence", id.Confidence).
		Msg("document classified")

	prs, err := p.registry.Resolve(id)
	if err != nil {
		res.Status = StatusSkipped
		res.Err = &models.DocumentError{Path: path, Err: err}
		log.Info().Err(err).Msg("no parser for identity, skipped")
		return res
	}

	meta, recs, err := prs.Parse(ctx, source.NewReplay(pages))
	if err != nil {
		res.Err = &models.DocumentError{Path: path, Err: err}
		log.Warn().Err(err).Str("parser", prs.Name()).Msg("parse failed")
		return res
	}
	res.Metadata = meta
	if meta != nil {
		res.DroppedFragments = meta.DroppedFragments
	}
	if len(recs) == 0 {
		res.Err = &models.DocumentError{Path: path, Err: models.ErrNoRows}
		if !meta.Empty() {
			// Cover data survived; only the transaction table came up empty.
			res.Status = StatusPartial
		}
		log.Warn().Str("parser", prs.Name()).Str("status", string(res.Status)).Msg("no rows reconstructed")
		return res
	}

	txns, recErrs := normalize.Normalize(recs, normalize.RulesFor(id), meta)
	res.Transactions = txns
	res.RecordErrors = recErrs
	switch {
	case len(txns) == 0:
		res.Status = StatusFailed
		res.Err = &models.DocumentError{Path: path, Err: fmt.Errorf("all %d records rejected", len(recErrs))}
	case len(recErrs) > 0:
		res.Status = StatusPartial
	default:
		res.Status = StatusSuccess
	}
	log.Info().
		Str("status", string(res.Status)).
		Int("transactions", len(txns)).
		Int("rejected", len(recErrs)).
		Int("dropped", res.DroppedFragments).
		Msg("document processed")
	return res
}

// extract drains the native source and falls back to OCR when the text fails
// the readability gate.
func (p *Pipeline) extract(ctx context.Context, path string, log zerolog.Logger) ([]*source.Page, error) {
	pages, err := p.drain(ctx, p.opts.Open, path)
	if err == nil && source.Readable(pages) {
		return pages, nil
	}
	if p.opts.OCR == nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: text layer unreadable", models.ErrSourceUnavailable)
	}
	log.Info().Msg("native text unreadable, retrying with OCR")
	ocrPages, ocrErr := p.drain(ctx, p.opts.OCR, path)
	if ocrErr != nil {
		if err != nil {
			return nil, errors.Join(err, ocrErr)
		}
		return nil, ocrErr
	}
	if !source.Readable(ocrPages) {
		return nil, fmt.Errorf("%w: OCR text unreadable", models.ErrSourceUnavailable)
	}
	return ocrPages, nil
}

func (p *Pipeline) drain(ctx context.Context, open source.Opener, path string) ([]*source.Page, error) {
	src, err := open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return source.Drain(ctx, src)
}

// identify classifies the document and returns the joined page text so an
// unrecognized document can be reported with an excerpt.
func (p *Pipeline) identify(pages []*source.Page) (models.Identity, string) {
	var sb strings.Builder
	for _, pg := range pages {
		sb.WriteString(pg.Text())
		sb.WriteByte('\n')
	}
	text := sb.String()
	if p.opts.Force != nil {
		return *p.opts.Force, text
	}
	return p.classifier.Classify(text), text
}

// textSnippet collapses whitespace and bounds the excerpt attached to
// unclassified-document errors.
func textSnippet(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	const max = 120
	if r := []rune(s); len(r) > max {
		s = string(r[:max]) + "..."
	}
	return s
}

// ProcessBatch runs every path through Process with at most Workers
// documents in flight. Results come back in input order. Cancelling the
// context stops dispatching new documents; documents already in flight run
// to completion.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) []*DocumentResult {
	results := make([]*DocumentResult, len(paths))
	sem := make(chan struct{}, p.opts.Workers)
	var wg sync.WaitGroup

	for i, path := range paths {
		if ctx.Err() != nil {
			results[i] = &DocumentResult{
				ID:     uuid.NewString(),
				Path:   path,
				Status: StatusFailed,
				Err:    &models.DocumentError{Path: path, Err: ctx.Err()},
			}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.Process(ctx, path)
		}(i, path)
	}
	wg.Wait()
	return results
}

// Summary aggregates batch outcomes for logging and exit codes.
type Summary struct {
	Total   int
	Success int
	Partial int
	Skipped int
	Failed  int
}

// Summarize counts results by status.
func Summarize(results []*DocumentResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusPartial:
			s.Partial++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
