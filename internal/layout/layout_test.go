package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancosreader/extractor/internal/models"
)

func frag(text string, x0, y0, x1 float64) models.Fragment {
	return models.Fragment{Text: text, Page: 1, X0: x0, Y0: y0, X1: x1, Y1: y0 + 10}
}

func testHint() Hint {
	return Hint{
		Columns: []Column{
			{Role: models.RoleDate, Min: 40, Max: 95},
			{Role: models.RoleDescription, Min: 100, Max: 300},
			{Role: models.RoleDebit, Min: 320, Max: 380},
			{Role: models.RoleCredit, Min: 400, Max: 460},
		},
		Tol: DefaultTolerances(),
	}
}

func txnFragments() []models.Fragment {
	return []models.Fragment{
		frag("01/JUL", 50, 100, 90),
		frag("SPEI RECIBIDO", 110, 100, 220),
		frag("1,500.00", 405, 101, 455),

		frag("03/JUL", 50, 120, 90),
		frag("PAGO TARJETA", 110, 120, 210),
		frag("350.00", 325, 119, 375),
	}
}

func TestReconstructBasicRows(t *testing.T) {
	res := Reconstruct(txnFragments(), testHint())

	require.Len(t, res.Rows, 2)
	assert.Zero(t, res.Dropped)

	assert.Equal(t, "01/JUL", res.Rows[0].Cell(models.RoleDate))
	assert.Equal(t, "SPEI RECIBIDO", res.Rows[0].Cell(models.RoleDescription))
	assert.Equal(t, "1,500.00", res.Rows[0].Cell(models.RoleCredit))
	assert.Empty(t, res.Rows[0].Cell(models.RoleDebit))

	assert.Equal(t, "03/JUL", res.Rows[1].Cell(models.RoleDate))
	assert.Equal(t, "350.00", res.Rows[1].Cell(models.RoleDebit))
}

func TestReconstructDeterministic(t *testing.T) {
	frags := txnFragments()
	first := Reconstruct(frags, testHint())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Reconstruct(frags, testHint()))
	}
}

func TestReconstructShuffledInputSameRows(t *testing.T) {
	frags := txnFragments()
	reversed := make([]models.Fragment, len(frags))
	for i, f := range frags {
		reversed[len(frags)-1-i] = f
	}

	assert.Equal(t, Reconstruct(frags, testHint()), Reconstruct(reversed, testHint()))
}

func TestReconstructWrappedDescriptionMergesForward(t *testing.T) {
	frags := append(txnFragments(),
		// Wrapped detail under the second movement: no date, no amount.
		frag("REF 0012345 SUC GUADALAJARA", 110, 132, 260),
	)

	res := Reconstruct(frags, testHint())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "PAGO TARJETA REF 0012345 SUC GUADALAJARA",
		res.Rows[1].Cell(models.RoleDescription))
}

func TestReconstructMergeKeepsOrderAcrossMultipleWraps(t *testing.T) {
	frags := append(txnFragments(),
		frag("LINEA DOS", 110, 132, 180),
		frag("LINEA TRES", 110, 144, 180),
	)

	res := Reconstruct(frags, testHint())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "PAGO TARJETA LINEA DOS LINEA TRES",
		res.Rows[1].Cell(models.RoleDescription))
}

func TestReconstructDropsFarFragments(t *testing.T) {
	hint := testHint()
	hint.Tol.DropBeyond = 20
	frags := append(txnFragments(),
		// Page-number fragment far right of every column.
		frag("7", 580, 100, 585),
	)

	res := Reconstruct(frags, hint)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Rows, 2)
}

func TestReconstructAttachesNearbyStray(t *testing.T) {
	// Fragment just outside the credit column range but within DropBeyond.
	frags := append(txnFragments(),
		frag("2,000.00", 480, 100, 530),
	)

	res := Reconstruct(frags, testHint())
	assert.Zero(t, res.Dropped)
	assert.Equal(t, "1,500.00 2,000.00", res.Rows[0].Cell(models.RoleCredit))
}

func TestReconstructSkipsFurnitureRows(t *testing.T) {
	frags := append(txnFragments(),
		// Standalone header text above the table: no previous row to merge
		// into, no date, no amount.
		frag("ESTADO DE CUENTA", 110, 20, 250),
	)

	res := Reconstruct(frags, testHint())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "01/JUL", res.Rows[0].Cell(models.RoleDate))
}

func TestReconstructEmptyInput(t *testing.T) {
	res := Reconstruct(nil, testHint())
	assert.Empty(t, res.Rows)

	res = Reconstruct(txnFragments(), Hint{})
	assert.Empty(t, res.Rows)
}

func TestReconstructRowBandSplitsCloseRows(t *testing.T) {
	hint := testHint()
	hint.Tol.RowBand = 0.5
	frags := []models.Fragment{
		frag("01/JUL", 50, 100, 90),
		frag("ABONO NOMINA", 110, 100, 200),
		frag("900.00", 405, 100, 450),
		frag("02/JUL", 50, 102, 90),
		frag("RETIRO ATM", 110, 102, 200),
		frag("500.00", 325, 102, 370),
	}

	res := Reconstruct(frags, hint)
	assert.Len(t, res.Rows, 2)
}

func TestDateAndAmountTokens(t *testing.T) {
	for _, s := range []string{"01/JUL", "08/01/25", "08/01/2025", "15-ENE-2024", "5-FEB-2024"} {
		assert.True(t, DateLikeToken(s), s)
	}
	for _, s := range []string{"FOLIO", "123456789", "01//JUL"} {
		assert.False(t, DateLikeToken(s), s)
	}

	for _, s := range []string{"1,234.56", "-12,432.34", "$ 399.00", "0.50", "1.234,56"} {
		assert.True(t, AmountLikeToken(s), s)
	}
	for _, s := range []string{"REF123", "12", "1,234"} {
		assert.False(t, AmountLikeToken(s), s)
	}
}
