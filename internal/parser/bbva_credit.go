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

// BBVACreditParser handles BBVA Mexico credit-card (TDC) statements.
//
// Movement lines are fully line-oriented:
//
//	DD/MM/YY DD/MM/YY CONCEPTO [RFC] ******REF $ AMOUNT
//
// A negative amount is a payment to the card. The movement section ends at
// the "TABLA/GRAFICO DE ESTADO DE CUENTA" block; everything after it is
// regulatory boilerplate.
type BBVACreditParser struct{}

// NewBBVACredit returns the parser.
func NewBBVACredit() *BBVACreditParser { return &BBVACreditParser{} }

func (p *BBVACreditParser) Name() string { return "BBVA credit" }

// Movement with taxpayer id (RFC) between concept and card reference:
// "08/01/25 09/01/25 OXXO MONTERREY AME 1404027R0 ******7111 $ 399.00"
var creditWithRFC = regexp.MustCompile(
	`^(\d{2}/\d{2}/\d{2,4})\s+(\d{2}/\d{2}/\d{2,4})\s+(.+?)\s+` +
		`([A-ZÑ&]{3})\s+([0-9A-Z]{8,12})\s+([*Xx\d]{4,})\s+` +
		`\$\s*(-?[\d,]+\.\d{2})\s*$`,
)

// Movement without RFC (payments): "10/01/25 10/01/25 PAGO TDC ******0110 $ -12,432.34"
var creditNoRFC = regexp.MustCompile(
	`^(\d{2}/\d{2}/\d{2,4})\s+(\d{2}/\d{2}/\d{2,4})\s+(.+?)\s+` +
		`([*Xx\d]{4,})\s+\$\s*(-?[\d,]+\.\d{2})\s*$`,
)

var creditStopMarkers = []string{
	"TABLA / GRAFICO DE ESTADO DE CUENTA",
	"TABLA/GRAFICO DE ESTADO DE CUENTA",
}

// creditSkipPrefixes open lines that look like text but never are movements.
var creditSkipPrefixes = []string{
	"ESTADO DE CUENTA",
	"PAGINA",
	"LINEA BBVA",
	"AV. PASEO",
	"BBVA MEXICO",
	"ESTIMADO TARJETAHABIENTE",
	"IVA",
	"SI ESTAS ADHERIDO",
}

func (p *BBVACreditParser) Parse(ctx context.Context, src source.Source) (*models.Metadata, []models.RawRecord, error) {
	meta := &models.Metadata{}
	var records []models.RawRecord
	coverSeen := false
	stop := false

	for !stop {
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

			if containsAny(up, creditStopMarkers) {
				stop = true
				break
			}
			if hasPrefixAny(up, creditSkipPrefixes) {
				continue
			}
			// Table headers repeat on every page.
			if strings.Contains(up, "FECHA") && strings.Contains(up, "APLICACION") {
				continue
			}
			if strings.Contains(up, "IMPORTE") && (strings.Contains(up, "CARGOS") || strings.Contains(up, "ABONOS")) {
				continue
			}

			rec, ok := p.movementFromLine(line, len(records), page.Index)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
	}

	return meta, records, nil
}

func (p *BBVACreditParser) movementFromLine(line string, index, page int) (models.RawRecord, bool) {
	var f1, f2, concept, rfc, ref, amount string

	if m := creditWithRFC.FindStringSubmatch(line); m != nil {
		f1, f2, concept = m[1], m[2], strings.TrimSpace(m[3])
		rfc = m[4] + " " + m[5]
		ref = m[6]
		amount = m[7]
	} else if m := creditNoRFC.FindStringSubmatch(line); m != nil {
		f1, f2, concept = m[1], m[2], strings.TrimSpace(m[3])
		ref = m[4]
		amount = m[5]
	} else {
		return models.RawRecord{}, false
	}

	var detail []string
	if rfc != "" {
		detail = append(detail, "RFC:"+rfc)
	}
	if ref != "" {
		detail = append(detail, "REF:"+ref)
	}

	return models.RawRecord{
		RowIndex:       index,
		Page:           page,
		DateText:       f1,
		SecondDateText: f2,
		Description:    concept,
		Amounts:        map[models.ColumnRole]string{models.RoleAmount: amount},
		Detail:         strings.Join(detail, " "),
	}, true
}

func (p *BBVACreditParser) extractMetadata(meta *models.Metadata, lines []string, text string) {
	if start, end, ok := findPeriod(text); ok {
		meta.PeriodStart, meta.PeriodEnd = &start, &end
	}
	meta.AccountID = findLabeledValue(lines, "NO. DE TARJETA", "TARJETA TITULAR", "NO. DE CUENTA")
	meta.Currency = detectCurrency(text)
	if d, ok := findLabeledAmount(lines, "SALDO ANTERIOR"); ok {
		meta.OpeningBalance = &d
	}
	if d, ok := findLabeledAmount(lines, "SALDO AL CORTE", "SALDO DEUDOR TOTAL"); ok {
		meta.ClosingBalance = &d
	}
}

func hasPrefixAny(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
