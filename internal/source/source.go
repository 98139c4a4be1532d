// Package source supplies page text for one document at a time. A Source
// yields pages in order, each carrying positioned fragments and plain lines.
// Native PDF extraction and OCR both satisfy the same interface; pipeline
// code never distinguishes them.
package source

import (
	"context"
	"io"

	"github.com/bancosreader/extractor/internal/models"
)

// Page is one page of extracted text. Fragments carry coordinates with Y
// increasing downward (top of page = small Y) regardless of the producing
// implementation. Lines is the row-ordered plain text of the page; it is
// always populated, even when Fragments could not be (degraded extraction).
type Page struct {
	Index     int
	Fragments []models.Fragment
	Lines     []string
}

// Text joins the page lines.
func (p *Page) Text() string {
	out := ""
	for i, l := range p.Lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// Source yields the pages of one document, in order, exactly once.
// Next returns io.EOF after the last page. A Source is single-use; callers
// open a fresh one per document.
type Source interface {
	Next(ctx context.Context) (*Page, error)
	Close() error
}

// Opener creates a Source for a document path.
type Opener func(path string) (Source, error)

// Replay is an in-memory Source over already-extracted pages. The pipeline
// uses it to hand the classifier's pages to the parser without re-reading
// the file; tests use it to inject synthetic pages.
type Replay struct {
	pages []*Page
	pos   int
}

// NewReplay wraps pages in a Source.
func NewReplay(pages []*Page) *Replay {
	return &Replay{pages: pages}
}

func (r *Replay) Next(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.pages) {
		return nil, io.EOF
	}
	p := r.pages[r.pos]
	r.pos++
	return p, nil
}

func (r *Replay) Close() error { return nil }

// Drain reads a source to exhaustion and returns its pages.
func Drain(ctx context.Context, src Source) ([]*Page, error) {
	var pages []*Page
	for {
		p, err := src.Next(ctx)
		if err == io.EOF {
			return pages, nil
		}
		if err != nil {
			return pages, err
		}
		pages = append(pages, p)
	}
}
