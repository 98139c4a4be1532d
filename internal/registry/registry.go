// Package registry maps classified identities to parser implementations.
// The registry is built once at startup and read-only afterwards, so
// concurrent batch workers need no locking to resolve parsers.
package registry

import (
	"fmt"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/parser"
)

// Factory produces a fresh parser instance. Parsers are stateless across
// calls but a factory keeps any per-document state possible later without
// touching call sites.
type Factory func() parser.Parser

type key struct {
	institution string
	product     models.Product
}

// Registry holds (institution, product) → parser factory entries.
type Registry struct {
	entries map[key]Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[key]Factory)}
}

// Register adds an entry. Registering the same (institution, product) twice
// fails: silent replacement would make startup order load-bearing.
func (r *Registry) Register(institution string, product models.Product, f Factory) error {
	k := key{institution: institution, product: product}
	if _, dup := r.entries[k]; dup {
		return fmt.Errorf("parser already registered for %s/%s", institution, product)
	}
	r.entries[k] = f
	return nil
}

// Resolve returns a parser for the identity, or ErrNoParser when nothing is
// registered for it. The error is recoverable at document level: the caller
// reports the document and moves on.
func (r *Registry) Resolve(id models.Identity) (parser.Parser, error) {
	if id.Unknown() {
		return nil, fmt.Errorf("%w: unclassified document", models.ErrNoParser)
	}
	f, ok := r.entries[key{institution: id.Institution, product: id.Product}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", models.ErrNoParser, id.Institution, id.Product)
	}
	return f(), nil
}

// Len reports how many identities are registered.
func (r *Registry) Len() int { return len(r.entries) }
