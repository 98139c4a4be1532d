// Package normalize converts raw transaction records into the canonical
// schema: typed dates, signed decimal amounts, categories. Failures are
// per-record, never per-document.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/parser"
)

// DateFormat names how an institution writes movement dates.
type DateFormat int

const (
	// DateDayMonth is DD/MES with the year taken from the statement
	// period (BBVA debit).
	DateDayMonth DateFormat = iota
	// DateSlash is DD/MM/YY or DD/MM/YYYY, day first (BBVA credit).
	DateSlash
	// DateDash is DD-MMM-YYYY (Santander).
	DateDash
)

// ConflictPolicy decides what happens when one raw row carries both a debit
// and a credit value.
type ConflictPolicy int

const (
	// ConflictError rejects the record: the layouts normalized here never
	// legitimately populate both, so a double hit means column
	// misassignment upstream.
	ConflictError ConflictPolicy = iota
	// ConflictNet nets the two: credit minus debit.
	ConflictNet
)

// Rules are the per-institution normalization settings.
type Rules struct {
	Dates DateFormat
	// BareAmountIsDebit applies when only a bare amount column exists:
	// true means an unsigned value is a charge (negative canonical) and
	// an explicit minus flips it to a payment.
	BareAmountIsDebit bool
	Conflict          ConflictPolicy
	// FeeKeywords upgrade a debit to the fee category when the
	// description matches one, exactly or within edit distance 2.
	FeeKeywords []string
}

var defaultFeeKeywords = []string{
	"COMISION", "ANUALIDAD", "MEMBRESIA", "IVA COMISION", "MANEJO DE CUENTA",
	"CUOTA", "CARGO POR SERVICIO",
}

// rulesTable maps institutions to their formats. New institutions add an
// entry here and nothing else.
var rulesTable = map[string]map[models.Product]Rules{
	"bbva": {
		models.ProductDebit:  {Dates: DateDayMonth, Conflict: ConflictError, FeeKeywords: defaultFeeKeywords},
		models.ProductCredit: {Dates: DateSlash, BareAmountIsDebit: true, Conflict: ConflictError, FeeKeywords: defaultFeeKeywords},
	},
	"santander": {
		models.ProductDebit: {Dates: DateDash, Conflict: ConflictError, FeeKeywords: defaultFeeKeywords},
	},
}

// RulesFor returns the rules for an identity, falling back to slash dates
// when the institution has no entry.
func RulesFor(id models.Identity) Rules {
	if products, ok := rulesTable[id.Institution]; ok {
		if r, ok := products[id.Product]; ok {
			return r
		}
	}
	return Rules{Dates: DateSlash, Conflict: ConflictError, FeeKeywords: defaultFeeKeywords}
}

// Normalize converts raw records under the institution's rules. Malformed
// records come back as FieldErrors and are excluded; the rest are returned
// in input order. meta supplies the statement year for layouts that omit it
// from movement dates.
func Normalize(recs []models.RawRecord, rules Rules, meta *models.Metadata) ([]models.Transaction, []models.FieldError) {
	txns := make([]models.Transaction, 0, len(recs))
	var errs []models.FieldError

	for _, rec := range recs {
		date, err := parseDate(rec.DateText, rules, meta)
		if err != nil {
			errs = append(errs, models.FieldError{
				Row: rec.RowIndex, Field: models.RoleDate, Value: rec.DateText,
				Err: fmt.Errorf("%w: %v", models.ErrMalformedDate, err),
			})
			continue
		}

		amount, category, ferr := resolveAmount(rec, rules)
		if ferr != nil {
			errs = append(errs, *ferr)
			continue
		}

		txns = append(txns, models.Transaction{
			Date:        date,
			Description: cleanDescription(rec),
			Amount:      amount,
			Category:    refineCategory(category, amount, rec, rules),
			SourceRow:   rec.RowIndex,
			Page:        rec.Page,
			Detail:      strings.TrimSpace(rec.Detail),
		})
	}
	return txns, errs
}

func parseDate(text string, rules Rules, meta *models.Metadata) (time.Time, error) {
	switch rules.Dates {
	case DateDayMonth:
		return parser.ParseDayMonth(text, statementYear(meta))
	case DateDash:
		return parser.ParseDashDate(text)
	default:
		return parser.ParseSlashDate(text)
	}
}

// statementYear derives the year for short dates from the statement period.
func statementYear(meta *models.Metadata) int {
	if meta != nil {
		if meta.PeriodStart != nil {
			return meta.PeriodStart.Year()
		}
		if meta.PeriodEnd != nil {
			return meta.PeriodEnd.Year()
		}
	}
	return time.Now().UTC().Year()
}

// resolveAmount applies the sign convention: debit-populated rows are
// negative, credit-populated positive, and bare amounts follow the
// institution default plus any explicit sign marker.
func resolveAmount(rec models.RawRecord, rules Rules) (decimal.Decimal, models.Category, *models.FieldError) {
	debitText := rec.Amount(models.RoleDebit)
	creditText := rec.Amount(models.RoleCredit)

	fieldErr := func(field models.ColumnRole, value string, err error) *models.FieldError {
		return &models.FieldError{
			Row: rec.RowIndex, Field: field, Value: value,
			Err: fmt.Errorf("%w: %v", models.ErrMalformedAmount, err),
		}
	}

	switch {
	case debitText != "" && creditText != "":
		if rules.Conflict == ConflictError {
			return decimal.Decimal{}, "", fieldErr(models.RoleDebit, debitText+"/"+creditText,
				fmt.Errorf("both debit and credit populated"))
		}
		d, err := parser.CleanAmount(debitText)
		if err != nil {
			return decimal.Decimal{}, "", fieldErr(models.RoleDebit, debitText, err)
		}
		c, err := parser.CleanAmount(creditText)
		if err != nil {
			return decimal.Decimal{}, "", fieldErr(models.RoleCredit, creditText, err)
		}
		net := c.Sub(d)
		cat := models.CategoryDebit
		if net.Sign() > 0 {
			cat = models.CategoryCredit
		}
		return net, cat, nil

	case debitText != "":
		d, err := parser.CleanAmount(debitText)
		if err != nil {
			return decimal.Decimal{}, "", fieldErr(models.RoleDebit, debitText, err)
		}
		return d.Abs().Neg(), models.CategoryDebit, nil

	case creditText != "":
		c, err := parser.CleanAmount(creditText)
		if err != nil {
			return decimal.Decimal{}, "", fieldErr(models.RoleCredit, creditText, err)
		}
		return c.Abs(), models.CategoryCredit, nil
	}

	bare := rec.Amount(models.RoleAmount)
	if bare == "" {
		return decimal.Decimal{}, "", fieldErr(models.RoleAmount, "", fmt.Errorf("no amount field populated"))
	}
	a, err := parser.CleanAmount(bare)
	if err != nil {
		return decimal.Decimal{}, "", fieldErr(models.RoleAmount, bare, err)
	}
	if rules.BareAmountIsDebit {
		// Unsigned value is a charge; the explicit minus marks a payment.
		if a.Sign() < 0 {
			return a.Abs(), models.CategoryCredit, nil
		}
		return a.Neg(), models.CategoryDebit, nil
	}
	if a.Sign() < 0 {
		return a, models.CategoryDebit, nil
	}
	if a.Sign() > 0 {
		return a, models.CategoryCredit, nil
	}
	return a, models.CategoryUnknown, nil
}

// refineCategory upgrades debits whose description names a bank fee.
func refineCategory(cat models.Category, amount decimal.Decimal, rec models.RawRecord, rules Rules) models.Category {
	if cat != models.CategoryDebit || amount.Sign() >= 0 {
		return cat
	}
	desc := strings.ToUpper(rec.Description)
	for _, kw := range rules.FeeKeywords {
		if strings.Contains(desc, kw) {
			return models.CategoryFee
		}
		// OCR and tight kerning mangle fee words; edit distance catches
		// COMISON, ANUAL1DAD and similar.
		for _, word := range strings.Fields(desc) {
			if len(word) >= 5 && fuzzy.LevenshteinDistance(word, kw) <= 2 {
				return models.CategoryFee
			}
		}
	}
	return cat
}

// cleanDescription collapses whitespace and trims column debris.
func cleanDescription(rec models.RawRecord) string {
	return strings.Join(strings.Fields(rec.Description), " ")
}
