package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancosreader/extractor/internal/models"
)

func testSignatures() []Signature {
	return []Signature{
		{
			Institution: "bbva",
			Product:     models.ProductCredit,
			Patterns:    []string{"BBVA", "TARJETA DE CREDITO", "PAGO MINIMO"},
		},
		{
			Institution: "bbva",
			Product:     models.ProductDebit,
			Patterns:    []string{"BBVA", "CARGOS", "ABONOS"},
		},
		{
			Institution: "santander",
			Product:     models.ProductDebit,
			Patterns:    []string{"SANTANDER", "ESTADO DE CUENTA"},
		},
	}
}

func TestClassifyEachSignatureMatchesItself(t *testing.T) {
	sigs := testSignatures()
	c := New(sigs, DefaultOptions())

	tests := []struct {
		name string
		text string
		want models.Identity
	}{
		{
			name: "bbva credit",
			text: "BBVA Mexico\nTarjeta de Credito\nPago Minimo $500.00",
			want: models.Identity{Institution: "bbva", Product: models.ProductCredit},
		},
		{
			name: "bbva debit",
			text: "BBVA\nDetalle de movimientos\nCARGOS ABONOS OPERACION",
			want: models.Identity{Institution: "bbva", Product: models.ProductDebit},
		},
		{
			name: "santander debit",
			text: "Banco Santander\nEstado de Cuenta\nCuenta Unica",
			want: models.Identity{Institution: "santander", Product: models.ProductDebit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			require.False(t, got.Unknown(), "expected a classification")
			assert.Equal(t, tt.want.Institution, got.Institution)
			assert.Equal(t, tt.want.Product, got.Product)
			assert.Greater(t, got.Confidence, DefaultOptions().MinConfidence)
		})
	}
}

func TestClassifyUnknownBelowThreshold(t *testing.T) {
	c := New(testSignatures(), DefaultOptions())

	got := c.Classify("Grocery list: tomatoes, rice, coffee")
	assert.True(t, got.Unknown())
	assert.Zero(t, got.Confidence)
}

func TestClassifyEmptyText(t *testing.T) {
	c := New(testSignatures(), DefaultOptions())
	assert.True(t, c.Classify("").Unknown())
}

func TestClassifyTieKeepsFirstDeclared(t *testing.T) {
	sigs := []Signature{
		{Institution: "first", Product: models.ProductDebit, Patterns: []string{"SHARED PHRASE"}},
		{Institution: "second", Product: models.ProductDebit, Patterns: []string{"SHARED PHRASE"}},
	}
	c := New(sigs, DefaultOptions())

	got := c.Classify("header SHARED PHRASE footer")
	assert.Equal(t, "first", got.Institution)
}

func TestClassifyPrefersHeavierMatch(t *testing.T) {
	sigs := []Signature{
		{Institution: "weak", Product: models.ProductDebit, Patterns: []string{"BANCO"}},
		{Institution: "strong", Product: models.ProductDebit, Patterns: []string{"BANCO", "ESTADO DE CUENTA INTEGRAL"}},
	}
	c := New(sigs, DefaultOptions())

	got := c.Classify("BANCO\nESTADO DE CUENTA INTEGRAL")
	assert.Equal(t, "strong", got.Institution)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New(testSignatures(), DefaultOptions())

	got := c.Classify("bbva tarjeta de credito pago minimo")
	require.False(t, got.Unknown())
	assert.Equal(t, models.ProductCredit, got.Product)
}

func TestClassifyMinPatternsCutoff(t *testing.T) {
	sigs := []Signature{
		{Institution: "bank", Product: models.ProductDebit, Patterns: []string{"ALPHA", "BETA", "GAMMA"}},
	}
	c := New(sigs, Options{MinPatterns: 2, MinConfidence: 0})

	assert.True(t, c.Classify("only ALPHA here").Unknown())
	assert.False(t, c.Classify("ALPHA and BETA here").Unknown())
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(testSignatures(), DefaultOptions())
	text := "BBVA CARGOS ABONOS estado de cuenta"

	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}
