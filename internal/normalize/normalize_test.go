package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancosreader/extractor/internal/models"
)

func metaForYear(year int) *models.Metadata {
	start := time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.July, 31, 0, 0, 0, 0, time.UTC)
	return &models.Metadata{PeriodStart: &start, PeriodEnd: &end}
}

func TestNormalizeSignInvariant(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "bbva", Product: models.ProductDebit})
	recs := []models.RawRecord{
		{
			RowIndex: 0, DateText: "01/JUL", Description: "RETIRO ATM",
			Amounts: map[models.ColumnRole]string{models.RoleDebit: "350.00"},
		},
		{
			RowIndex: 1, DateText: "02/JUL", Description: "SPEI RECIBIDO",
			Amounts: map[models.ColumnRole]string{models.RoleCredit: "1,500.00"},
		},
	}

	txns, errs := Normalize(recs, rules, metaForYear(2025))
	require.Empty(t, errs)
	require.Len(t, txns, 2)

	assert.True(t, txns[0].Amount.IsNegative(), "debit must be negative")
	assert.Equal(t, models.CategoryDebit, txns[0].Category)
	assert.Equal(t, "-350", txns[0].Amount.String())

	assert.True(t, txns[1].Amount.IsPositive(), "credit must be positive")
	assert.Equal(t, models.CategoryCredit, txns[1].Category)
	assert.Equal(t, "1500", txns[1].Amount.String())
}

func TestNormalizeDayMonthUsesStatementYear(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "bbva", Product: models.ProductDebit})
	recs := []models.RawRecord{
		{DateText: "15/JUL", Description: "X", Amounts: map[models.ColumnRole]string{models.RoleDebit: "1.00"}},
	}

	txns, errs := Normalize(recs, rules, metaForYear(2023))
	require.Empty(t, errs)
	require.Len(t, txns, 1)
	assert.Equal(t, time.Date(2023, time.July, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)
}

func TestNormalizeBareAmountCreditCard(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "bbva", Product: models.ProductCredit})
	recs := []models.RawRecord{
		{RowIndex: 0, DateText: "08/01/25", Description: "OXXO MONTERREY",
			Amounts: map[models.ColumnRole]string{models.RoleAmount: "399.00"}},
		{RowIndex: 1, DateText: "10/01/25", Description: "PAGO TDC",
			Amounts: map[models.ColumnRole]string{models.RoleAmount: "-12,432.34"}},
	}

	txns, errs := Normalize(recs, rules, nil)
	require.Empty(t, errs)
	require.Len(t, txns, 2)

	// Unsigned card amount is a charge.
	assert.Equal(t, "-399", txns[0].Amount.String())
	assert.Equal(t, models.CategoryDebit, txns[0].Category)
	// Explicit minus is a payment to the card.
	assert.Equal(t, "12432.34", txns[1].Amount.String())
	assert.Equal(t, models.CategoryCredit, txns[1].Category)
}

func TestNormalizeConflictError(t *testing.T) {
	rules := Rules{Dates: DateDayMonth, Conflict: ConflictError}
	recs := []models.RawRecord{
		{RowIndex: 7, DateText: "01/JUL", Description: "DOBLE",
			Amounts: map[models.ColumnRole]string{
				models.RoleDebit:  "100.00",
				models.RoleCredit: "200.00",
			}},
	}

	txns, errs := Normalize(recs, rules, metaForYear(2025))
	assert.Empty(t, txns)
	require.Len(t, errs, 1)
	assert.Equal(t, 7, errs[0].Row)
	assert.ErrorIs(t, errs[0], models.ErrMalformedAmount)
}

func TestNormalizeConflictNet(t *testing.T) {
	rules := Rules{Dates: DateDayMonth, Conflict: ConflictNet}
	recs := []models.RawRecord{
		{DateText: "01/JUL", Description: "DOBLE",
			Amounts: map[models.ColumnRole]string{
				models.RoleDebit:  "100.00",
				models.RoleCredit: "250.00",
			}},
	}

	txns, errs := Normalize(recs, rules, metaForYear(2025))
	require.Empty(t, errs)
	require.Len(t, txns, 1)
	assert.Equal(t, "150", txns[0].Amount.String())
	assert.Equal(t, models.CategoryCredit, txns[0].Category)
}

func TestNormalizeMalformedRecordsIsolated(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "santander", Product: models.ProductDebit})
	recs := []models.RawRecord{
		{RowIndex: 0, DateText: "15-ENE-2024", Description: "OK",
			Amounts: map[models.ColumnRole]string{models.RoleDebit: "100.00"}},
		{RowIndex: 1, DateText: "NOT A DATE", Description: "BAD DATE",
			Amounts: map[models.ColumnRole]string{models.RoleDebit: "100.00"}},
		{RowIndex: 2, DateText: "16-ENE-2024", Description: "NO AMOUNT"},
		{RowIndex: 3, DateText: "17-ENE-2024", Description: "OK TOO",
			Amounts: map[models.ColumnRole]string{models.RoleCredit: "50.00"}},
	}

	txns, errs := Normalize(recs, rules, nil)
	require.Len(t, txns, 2)
	require.Len(t, errs, 2)

	assert.Equal(t, 0, txns[0].SourceRow)
	assert.Equal(t, 3, txns[1].SourceRow)
	assert.ErrorIs(t, errs[0], models.ErrMalformedDate)
	assert.ErrorIs(t, errs[1], models.ErrMalformedAmount)
}

func TestNormalizeFeeCategory(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "bbva", Product: models.ProductDebit})

	tests := []struct {
		name string
		desc string
		want models.Category
	}{
		{"exact keyword", "COMISION MANEJO DE CUENTA", models.CategoryFee},
		{"ocr mangled", "COMISON SERVICIO", models.CategoryFee},
		{"plain debit", "RETIRO CAJERO", models.CategoryDebit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := []models.RawRecord{
				{DateText: "01/JUL", Description: tt.desc,
					Amounts: map[models.ColumnRole]string{models.RoleDebit: "200.00"}},
			}
			txns, errs := Normalize(recs, rules, metaForYear(2025))
			require.Empty(t, errs)
			require.Len(t, txns, 1)
			assert.Equal(t, tt.want, txns[0].Category)
		})
	}
}

func TestNormalizeFeeStaysNegative(t *testing.T) {
	rules := RulesFor(models.Identity{Institution: "bbva", Product: models.ProductDebit})
	recs := []models.RawRecord{
		{DateText: "01/JUL", Description: "COMISION",
			Amounts: map[models.ColumnRole]string{models.RoleDebit: "99.00"}},
	}

	txns, errs := Normalize(recs, rules, metaForYear(2025))
	require.Empty(t, errs)
	require.Len(t, txns, 1)
	assert.Equal(t, models.CategoryFee, txns[0].Category)
	assert.True(t, txns[0].Amount.IsNegative())
}

func TestNormalizeSeparatorConventions(t *testing.T) {
	rules := Rules{Dates: DateDash, Conflict: ConflictError}

	tests := []struct {
		raw  string
		want string
	}{
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"$ 399.00", "399"},
		{"0.50", "0.5"},
	}
	for _, tt := range tests {
		recs := []models.RawRecord{
			{DateText: "15-ENE-2024", Description: "X",
				Amounts: map[models.ColumnRole]string{models.RoleCredit: tt.raw}},
		}
		txns, errs := Normalize(recs, rules, nil)
		require.Empty(t, errs, tt.raw)
		require.Len(t, txns, 1)
		assert.Equal(t, decimal.RequireFromString(tt.want).String(), txns[0].Amount.String(), tt.raw)
	}
}

func TestRulesForUnknownInstitutionFallsBack(t *testing.T) {
	r := RulesFor(models.Identity{Institution: "banorte", Product: models.ProductDebit})
	assert.Equal(t, DateSlash, r.Dates)
	assert.Equal(t, ConflictError, r.Conflict)
}
