// Package models defines the data model shared by the extraction pipeline:
// positioned text fragments, the classification identity, raw and canonical
// transaction records, and statement metadata.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fragment is a positioned piece of text on one page. Fragments are the
// atomic input to row/column reconstruction and are immutable once produced
// by a text source.
type Fragment struct {
	Text string  `json:"text"`
	Page int     `json:"page"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// XCenter returns the horizontal center of the fragment, used for column
// assignment.
func (f Fragment) XCenter() float64 {
	return (f.X0 + f.X1) / 2
}

// Product distinguishes debit (current account) statements from credit card
// statements of the same institution.
type Product string

const (
	ProductDebit  Product = "debit"
	ProductCredit Product = "credit"
)

// Identity is the result of classifying a document. An empty Institution
// means the document could not be classified; that is terminal for the
// document, never for the batch.
type Identity struct {
	Institution string  `json:"institution"`
	Product     Product `json:"product"`
	Confidence  float64 `json:"confidence"`
}

// Unknown reports whether the classifier failed to identify the document.
func (id Identity) Unknown() bool {
	return id.Institution == ""
}

// ColumnRole names the logical column a reconstructed cell belongs to.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleDate2       ColumnRole = "date2"
	RoleCode        ColumnRole = "code"
	RoleDescription ColumnRole = "description"
	RoleDebit       ColumnRole = "debit"
	RoleCredit      ColumnRole = "credit"
	RoleBalance     ColumnRole = "balance"
	// RoleBalance2 is the second balance column some layouts carry
	// (operation-date balance vs. settlement-date balance).
	RoleBalance2 ColumnRole = "balance2"
	RoleAmount   ColumnRole = "amount"
)

// RawRecord is one transaction row as a parser saw it, before any field
// typing. It exists only for the duration of one document's parse pass.
type RawRecord struct {
	RowIndex       int
	Page           int
	DateText       string
	SecondDateText string
	Code           string
	Description    string
	// Amounts holds the still-textual money columns keyed by role
	// (debit, credit, balance, amount).
	Amounts map[ColumnRole]string
	// Detail accumulates continuation lines that wrapped below the row.
	Detail string
}

// Amount returns the raw text for a money column, "" when absent.
func (r RawRecord) Amount(role ColumnRole) string {
	if r.Amounts == nil {
		return ""
	}
	return r.Amounts[role]
}

// Metadata is the statement-level information extracted alongside the
// transaction rows. Optional fields are nil when the layout does not carry
// them.
type Metadata struct {
	AccountID      string           `json:"accountId,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	PeriodStart    *time.Time       `json:"periodStart,omitempty"`
	PeriodEnd      *time.Time       `json:"periodEnd,omitempty"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
	// DroppedFragments counts positioned fragments the reconstructor could
	// not assign to any column, carried here for diagnostics.
	DroppedFragments int `json:"droppedFragments,omitempty"`
}

// Empty reports whether nothing was extracted from the statement cover.
// Currency is ignored: parsers default it when the cover names none.
func (m *Metadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.AccountID == "" && m.PeriodStart == nil && m.PeriodEnd == nil &&
		m.OpeningBalance == nil && m.ClosingBalance == nil
}

// Category classifies a canonical transaction by the column that produced it.
type Category string

const (
	CategoryDebit   Category = "debit"
	CategoryCredit  Category = "credit"
	CategoryFee     Category = "fee"
	CategoryUnknown Category = "unknown"
)

// Transaction is the canonical record every institution normalizes into.
// This shape is the contract export sinks depend on and must not vary per
// institution. Amount is signed: positive means credit, negative debit.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	SourceRow   int             `json:"sourceRow"`
	Page        int             `json:"page"`
	Detail      string          `json:"detail,omitempty"`
}
