// Package parser defines the statement parser interface and one variant per
// institution and product. Variants share the layout reconstructor and the
// helpers in util.go; adding an institution means adding a file here and
// one registration at startup, nothing else changes.
package parser

import (
	"context"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/source"
)

// Parser consumes the page text source of one document and produces the
// statement metadata plus the ordered raw transaction records. Parsers are
// stateless across calls and never touch a source other than the one passed
// to them.
type Parser interface {
	Parse(ctx context.Context, src source.Source) (*models.Metadata, []models.RawRecord, error)
	// Name is the human-readable parser name for logs and summaries.
	Name() string
}
