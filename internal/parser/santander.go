package parser

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/source"
)

// SantanderDebitParser handles Santander Mexico current-account statements.
//
// Layout:
//
//	FECHA | FOLIO | DESCRIPCION | DEPOSITOS | RETIROS | SALDO
//
// Dates are DD-MMM-YYYY (15-ENE-2024). Deposits and withdrawals are
// separate columns; a line carries at most one of them plus the running
// balance, so the simple two-amount and one-amount patterns cover all rows.
type SantanderDebitParser struct{}

// NewSantanderDebit returns the parser.
func NewSantanderDebit() *SantanderDebitParser { return &SantanderDebitParser{} }

func (p *SantanderDebitParser) Name() string { return "Santander debit" }

// "15-ENE-2024 0001234 DEPOSITO EFECTIVO 1,500.00 12,340.50"
var santanderTxnPattern = regexp.MustCompile(
	`^(\d{1,2}-[A-ZÁÉÍÓÚ]{3}-\d{4})\s+(?:(\d{4,10})\s+)?(.+?)\s+` +
		`([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`,
)

var santanderTxnSimple = regexp.MustCompile(
	`^(\d{1,2}-[A-ZÁÉÍÓÚ]{3}-\d{4})\s+(?:(\d{4,10})\s+)?(.+?)\s+([\d,]+\.\d{2})\s*$`,
)

// depositKeywords decide the sign when only one amount column is present.
var depositKeywords = []string{
	"DEPOSITO", "ABONO", "TRANSFERENCIA RECIBIDA", "NOMINA", "DEVOLUCION",
}

var santanderSummaryKeywords = []string{
	"SALDO ANTERIOR", "SALDO FINAL", "TOTAL DE DEPOSITOS", "TOTAL DE RETIROS",
	"COMISIONES COBRADAS", "PAGINA",
}

func (p *SantanderDebitParser) Parse(ctx context.Context, src source.Source) (*models.Metadata, []models.RawRecord, error) {
	meta := &models.Metadata{}
	var records []models.RawRecord
	coverSeen := false

	for {
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
		}

		for _, raw := range page.Lines {
			line := normalizeLine(raw)
			if line == "" {
				continue
			}
			up := stripAccents(strings.ToUpper(line))
			if containsAny(up, santanderSummaryKeywords) {
				continue
			}

			if m := santanderTxnPattern.FindStringSubmatch(line); m != nil {
				rec := models.RawRecord{
					RowIndex:    len(records),
					Page:        page.Index,
					DateText:    m[1],
					Code:        m[2],
					Description: strings.TrimSpace(m[3]),
					Amounts:     map[models.ColumnRole]string{models.RoleBalance: m[5]},
				}
				if containsAny(stripAccents(strings.ToUpper(rec.Description)), depositKeywords) {
					rec.Amounts[models.RoleCredit] = m[4]
				} else {
					rec.Amounts[models.RoleDebit] = m[4]
				}
				records = append(records, rec)
				continue
			}

			if m := santanderTxnSimple.FindStringSubmatch(line); m != nil {
				rec := models.RawRecord{
					RowIndex:    len(records),
					Page:        page.Index,
					DateText:    m[1],
					Code:        m[2],
					Description: strings.TrimSpace(m[3]),
					Amounts:     map[models.ColumnRole]string{},
				}
				if containsAny(stripAccents(strings.ToUpper(rec.Description)), depositKeywords) {
					rec.Amounts[models.RoleCredit] = m[4]
				} else {
					rec.Amounts[models.RoleDebit] = m[4]
				}
				records = append(records, rec)
				continue
			}

			// Wrapped description lines continue the movement above.
			if len(records) > 0 && !strings.Contains(up, "FECHA") && !amountToken(line) {
				if looksLikeContinuation(line) {
					last := &records[len(records)-1]
					if last.Detail != "" {
						last.Detail += " | " + line
					} else {
						last.Detail = line
					}
				}
			}
		}
	}

	return meta, records, nil
}

func (p *SantanderDebitParser) extractMetadata(meta *models.Metadata, lines []string, text string) {
	if start, end, ok := findPeriod(text); ok {
		meta.PeriodStart, meta.PeriodEnd = &start, &end
	}
	meta.AccountID = findLabeledValue(lines, "CUENTA UNICA", "NO. DE CUENTA", "CUENTA:")
	meta.Currency = detectCurrency(text)
	if d, ok := findLabeledAmount(lines, "SALDO ANTERIOR", "SALDO INICIAL"); ok {
		meta.OpeningBalance = &d
	}
	if d, ok := findLabeledAmount(lines, "SALDO FINAL"); ok {
		meta.ClosingBalance = &d
	}
}

// looksLikeContinuation filters obvious boilerplate out of detail merging.
func looksLikeContinuation(line string) bool {
	if len(line) < 4 {
		return false
	}
	up := strings.ToUpper(line)
	return !strings.HasPrefix(up, "SANTANDER") && !strings.HasPrefix(up, "WWW.")
}
