// Package export writes normalized transactions to output files. Sinks share
// one row shape so CSV and XLSX output stay column-compatible.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/pipeline"
)

// Sink writes one document's results to path.
type Sink interface {
	Write(path string, res *pipeline.DocumentResult) error
	// Ext is the file extension the sink produces, without the dot.
	Ext() string
}

// ForFormat returns the sink for a format name.
func ForFormat(format string) (Sink, error) {
	switch strings.ToLower(format) {
	case "csv", "":
		return &CSVSink{IncludeMetadata: true}, nil
	case "xlsx":
		return &XLSXSink{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// row is the flat record both sinks emit.
type row struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Display     string `csv:"display"`
	Page        int    `csv:"page"`
	Detail      string `csv:"detail"`
}

// amountFloat gives the numeric cell value for spreadsheet output.
func (r row) amountFloat() (float64, error) {
	return strconv.ParseFloat(r.Amount, 64)
}

func rowsFor(res *pipeline.DocumentResult) []row {
	currency := currencyFor(res)
	rows := make([]row, 0, len(res.Transactions))
	for _, t := range res.Transactions {
		rows = append(rows, row{
			Date:        t.Date.Format("2006-01-02"),
			Description: t.Description,
			Category:    string(t.Category),
			Amount:      t.Amount.StringFixed(2),
			Display:     displayAmount(t, currency),
			Page:        t.Page,
			Detail:      t.Detail,
		})
	}
	return rows
}

func currencyFor(res *pipeline.DocumentResult) string {
	if res.Metadata != nil && res.Metadata.Currency != "" {
		return res.Metadata.Currency
	}
	return money.MXN
}

// displayAmount renders the amount with its currency symbol, using minor
// units so rounding follows the currency's decimal places.
func displayAmount(t models.Transaction, currency string) string {
	cents := t.Amount.Shift(2).Round(0).IntPart()
	return money.New(cents, currency).Display()
}

// metadataLines are the leading comment rows shared by both sinks.
func metadataLines(res *pipeline.DocumentResult) [][]string {
	var lines [][]string
	if !res.Identity.Unknown() {
		lines = append(lines, []string{"# Institution", res.Identity.Institution})
		lines = append(lines, []string{"# Product", string(res.Identity.Product)})
	}
	m := res.Metadata
	if m == nil {
		return lines
	}
	if m.AccountID != "" {
		lines = append(lines, []string{"# Account", m.AccountID})
	}
	if m.Currency != "" {
		lines = append(lines, []string{"# Currency", m.Currency})
	}
	if m.PeriodStart != nil && m.PeriodEnd != nil {
		period := m.PeriodStart.Format("2006-01-02") + " to " + m.PeriodEnd.Format("2006-01-02")
		lines = append(lines, []string{"# Period", period})
	}
	if m.OpeningBalance != nil {
		lines = append(lines, []string{"# Opening Balance", m.OpeningBalance.StringFixed(2)})
	}
	if m.ClosingBalance != nil {
		lines = append(lines, []string{"# Closing Balance", m.ClosingBalance.StringFixed(2)})
	}
	return lines
}
