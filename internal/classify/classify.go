// Package classify identifies which institution and product issued a
// statement by scoring configured signatures against the document text.
// Matching runs a single Aho-Corasick pass over the text, so the cost is
// independent of how many signatures are registered.
package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/bancosreader/extractor/internal/models"
)

// Signature describes one (institution, product) identity: the ordered
// required patterns whose presence in the document text votes for it.
// Signatures are configuration data, loaded at startup.
type Signature struct {
	Institution string   `json:"institution"`
	Product     models.Product `json:"product"`
	// Patterns are required substrings, matched case-insensitively.
	// Longer patterns weigh more: a product header phrase is stronger
	// evidence than a bank name that appears in marketing footers.
	Patterns []string `json:"patterns"`
}

// Options tune the unknown cutoff.
type Options struct {
	// MinPatterns is the minimum number of matched patterns for a
	// signature to be considered at all.
	MinPatterns int
	// MinConfidence is the minimum matched-weight share of the winning
	// signature; below it the document is unknown.
	MinConfidence float64
}

// DefaultOptions requires one matched pattern and 30% of signature weight.
func DefaultOptions() Options {
	return Options{MinPatterns: 1, MinConfidence: 0.3}
}

// Classifier scores document text against a fixed signature table. It is
// immutable after construction and safe for concurrent use.
type Classifier struct {
	sigs    []Signature
	opts    Options
	matcher *ahocorasick.Matcher
	// patternSig[i] lists (signature index, pattern weight) pairs for
	// automaton pattern i; identical patterns shared by signatures map to
	// one automaton entry with several owners.
	patternSig [][]owner
	sigWeight  []float64
}

type owner struct {
	sig    int
	weight float64
}

// New builds a classifier from the signature table. Declaration order is
// significant: it breaks score ties, first registered wins.
func New(sigs []Signature, opts Options) *Classifier {
	c := &Classifier{sigs: sigs, opts: opts, sigWeight: make([]float64, len(sigs))}

	index := make(map[string]int)
	var patterns [][]byte
	for si, sig := range sigs {
		for _, p := range sig.Patterns {
			norm := strings.ToUpper(strings.TrimSpace(p))
			if norm == "" {
				continue
			}
			w := float64(len(norm))
			c.sigWeight[si] += w
			pi, ok := index[norm]
			if !ok {
				pi = len(patterns)
				index[norm] = pi
				patterns = append(patterns, []byte(norm))
				c.patternSig = append(c.patternSig, nil)
			}
			c.patternSig[pi] = append(c.patternSig[pi], owner{sig: si, weight: w})
		}
	}
	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewMatcher(patterns)
	}
	return c
}

// Classify scores the full document text and returns the best identity, or
// an unknown identity with confidence zero when no signature clears the
// cutoff. Pure function of the text; no side effects.
func (c *Classifier) Classify(text string) models.Identity {
	if c.matcher == nil || text == "" {
		return models.Identity{}
	}
	hits := c.matcher.Match([]byte(strings.ToUpper(text)))

	matchedWeight := make([]float64, len(c.sigs))
	matchedCount := make([]int, len(c.sigs))
	for _, pi := range hits {
		if pi < 0 || pi >= len(c.patternSig) {
			continue
		}
		for _, o := range c.patternSig[pi] {
			matchedWeight[o.sig] += o.weight
			matchedCount[o.sig]++
		}
	}

	best := -1
	bestScore := 0.0
	for si := range c.sigs {
		if matchedCount[si] < c.opts.MinPatterns || c.sigWeight[si] == 0 {
			continue
		}
		score := matchedWeight[si]
		// Strictly-greater keeps the first declared signature on ties.
		if score > bestScore {
			best, bestScore = si, score
		}
	}
	if best < 0 {
		return models.Identity{}
	}

	conf := matchedWeight[best] / c.sigWeight[best]
	if conf < c.opts.MinConfidence {
		return models.Identity{}
	}
	return models.Identity{
		Institution: c.sigs[best].Institution,
		Product:     c.sigs[best].Product,
		Confidence:  conf,
	}
}
