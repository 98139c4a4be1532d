package models

import (
	"errors"
	"fmt"
)

// Document-level error kinds. All of them are recoverable at batch level:
// the affected document is reported and the batch continues.
var (
	// ErrUnclassified means classifier confidence stayed below threshold.
	ErrUnclassified = errors.New("document could not be classified")
	// ErrNoParser means the document was classified but no parser is
	// registered for its identity.
	ErrNoParser = errors.New("no parser registered for identity")
	// ErrNoRows means statement metadata was found but no transaction row
	// survived reconstruction where at least one was expected.
	ErrNoRows = errors.New("no transaction rows reconstructed")
	// ErrSourceUnavailable means the page text source could not read the
	// document at all (corrupt, encrypted, or unreadable PDF).
	ErrSourceUnavailable = errors.New("page text source unavailable")
)

// DocumentError ties an error kind to the document it occurred in.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// FieldError is a record-level normalization failure: one field of one raw
// record could not be parsed under the institution's format rules. The
// record is excluded; the rest of the document continues.
type FieldError struct {
	Row   int
	Field ColumnRole
	Value string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("row %d: malformed %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e FieldError) Unwrap() error { return e.Err }

// Malformed field sentinels, wrapped by FieldError.
var (
	ErrMalformedAmount = errors.New("malformed amount")
	ErrMalformedDate   = errors.New("malformed date")
)
