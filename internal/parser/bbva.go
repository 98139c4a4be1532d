package parser

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bancosreader/extractor/internal/layout"
	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/source"
)

// BBVADebitParser handles BBVA Mexico current-account statements.
//
// The transaction table has this layout:
//
//	OPER | LIQ | COD. | DESCRIPCION | CARGOS | ABONOS | OPERACION | LIQUIDACION
//
// Dates are DD/MES (01/JUL) with the year only on the cover period line.
// A movement row always carries two dates; rows below a movement with
// neither a date nor an amount are wrapped detail text. The table ends at
// the "TOTAL DE MOVIMIENTOS" summary.
type BBVADebitParser struct {
	// Tol overrides the reconstruction tolerances; zero value means
	// defaults.
	Tol layout.Tolerances
}

// NewBBVADebit returns the parser with default tolerances.
func NewBBVADebit() *BBVADebitParser {
	return &BBVADebitParser{Tol: layout.DefaultTolerances()}
}

func (p *BBVADebitParser) Name() string { return "BBVA debit" }

// bbvaHeaderLabels are the amount-column headers whose positions define the
// money columns of a transaction page.
var bbvaHeaderLabels = []layout.HeaderLabel{
	{Role: models.RoleDebit, Text: "CARGOS"},
	{Role: models.RoleCredit, Text: "ABONOS"},
	{Role: models.RoleBalance, Text: "OPERACION"},
	{Role: models.RoleBalance2, Text: "LIQUIDACION"},
}

// bbvaStopMarkers end the transaction table.
var bbvaStopMarkers = []string{"TOTAL DE MOVIMIENTOS", "TOTAL MOVIMIENTOS"}

func (p *BBVADebitParser) Parse(ctx context.Context, src source.Source) (*models.Metadata, []models.RawRecord, error) {
	tol := p.Tol
	if tol == (layout.Tolerances{}) {
		tol = layout.DefaultTolerances()
	}

	meta := &models.Metadata{}
	var records []models.RawRecord
	coverSeen := false
	done := false

	for !done {
		page, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return meta, records, err
		}
		text := page.Text()

		if !coverSeen {
			p.extractMetadata(meta, page.Lines, text)
			coverSeen = true
		} else if meta.AccountID == "" || meta.PeriodStart == nil {
			// Some statements spread cover data over two pages.
			p.extractMetadata(meta, page.Lines, text)
		}

		up := strings.ToUpper(text)
		if !strings.Contains(up, "CARGOS") || !strings.Contains(up, "ABONOS") {
			continue // cover or marketing page, no transaction table
		}

		cols, ok := layout.DetectColumns(page.Fragments, bbvaHeaderLabels, tol.RowBand)
		if !ok {
			continue
		}
		hint := layout.Hint{
			Columns:    p.pageColumns(page.Fragments, cols),
			Tol:        tol,
			DateLike:   func(s string) bool { return dayMonthPattern.MatchString(strings.ToUpper(s)) },
			AmountLike: amountToken,
		}
		result := layout.Reconstruct(page.Fragments, hint)
		meta.DroppedFragments += result.Dropped

		for _, row := range result.Rows {
			joined := strings.ToUpper(rowText(row))
			if containsAny(joined, bbvaStopMarkers) {
				done = true
				break
			}
			rec, ok := p.movementFromRow(row, len(records))
			if !ok {
				continue
			}
			records = append(records, rec)
		}
	}

	return meta, records, nil
}

// pageColumns prepends a description column covering everything left of the
// CARGOS column to the detected amount columns.
func (p *BBVADebitParser) pageColumns(frags []models.Fragment, amounts []layout.Column) []layout.Column {
	left := 0.0
	for i, f := range frags {
		if i == 0 || f.X0 < left {
			left = f.X0
		}
	}
	fence := amounts[0].Min
	for _, c := range amounts {
		if c.Min < fence {
			fence = c.Min
		}
	}
	cols := []layout.Column{{Role: models.RoleDescription, Min: left, Max: fence - 1}}
	return append(cols, amounts...)
}

// movementFromRow splits the description cell into dates, operation code and
// description, and keeps the money cells. Rows without two DD/MES dates are
// not movements (totals, carried balances) and are skipped.
func (p *BBVADebitParser) movementFromRow(row layout.Row, index int) (models.RawRecord, bool) {
	fields := strings.Fields(row.Cell(models.RoleDescription))
	var dateIdx []int
	for i, f := range fields {
		if dayMonthPattern.MatchString(strings.ToUpper(f)) {
			dateIdx = append(dateIdx, i)
		}
	}
	if len(dateIdx) < 2 {
		return models.RawRecord{}, false
	}
	i1, i2 := dateIdx[0], dateIdx[1]

	code := ""
	descStart := i2 + 1
	if descStart < len(fields) && !amountToken(fields[descStart]) {
		code = fields[descStart]
		descStart++
	}
	var desc []string
	desc = append(desc, fields[:i1]...)
	if descStart < len(fields) {
		desc = append(desc, fields[descStart:]...)
	}

	rec := models.RawRecord{
		RowIndex:       index,
		Page:           row.Page,
		DateText:       fields[i1],
		SecondDateText: fields[i2],
		Code:           code,
		Description:    strings.Join(desc, " "),
		Amounts:        map[models.ColumnRole]string{},
	}
	for _, role := range []models.ColumnRole{models.RoleDebit, models.RoleCredit, models.RoleBalance, models.RoleBalance2} {
		if v := row.Cell(role); v != "" {
			rec.Amounts[role] = v
		}
	}
	return rec, true
}

func (p *BBVADebitParser) extractMetadata(meta *models.Metadata, lines []string, text string) {
	if meta.PeriodStart == nil {
		if start, end, ok := findPeriod(text); ok {
			meta.PeriodStart, meta.PeriodEnd = &start, &end
		}
	}
	if meta.AccountID == "" {
		meta.AccountID = findLabeledValue(lines, "NO. DE CUENTA", "NUMERO DE CUENTA", "CUENTA:")
	}
	if meta.Currency == "" {
		meta.Currency = detectCurrency(text)
	}
	if meta.OpeningBalance == nil {
		if d, ok := findLabeledAmount(lines, "SALDO ANTERIOR", "SALDO INICIAL"); ok {
			meta.OpeningBalance = &d
		}
	}
	if meta.ClosingBalance == nil {
		if d, ok := findLabeledAmount(lines, "SALDO FINAL", "SALDO AL CORTE", "SALDO ACTUAL"); ok {
			meta.ClosingBalance = &d
		}
	}
}

func rowText(row layout.Row) string {
	var parts []string
	for _, role := range []models.ColumnRole{
		models.RoleDescription, models.RoleDebit, models.RoleCredit,
		models.RoleBalance, models.RoleBalance2,
	} {
		if v := row.Cell(role); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
