package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/source"
)

func creditStatement() []*source.Page {
	return []*source.Page{
		{
			Index: 0,
			Lines: []string{
				"BBVA MEXICO TARJETA DE CREDITO",
				"No. de Tarjeta 4152313XXXXXX711",
				"PERIODO DEL 01/01/2025 AL 31/01/2025",
				"Saldo Anterior $ 5,000.00",
				"Saldo al Corte $ 4,366.66",
			},
		},
		{
			Index: 1,
			Lines: []string{
				"FECHA DE OPERACION FECHA DE APLICACION CONCEPTO",
				"08/01/25 09/01/25 OXXO MONTERREY AME 1404027R0 ******7111 $ 399.00",
				"10/01/25 10/01/25 PAGO TDC ******0110 $ -12,432.34",
				"12/01/25 13/01/25 ANUALIDAD TARJETA ******7111 $ 980.00",
				"TABLA/GRAFICO DE ESTADO DE CUENTA",
				"15/01/25 15/01/25 DESPUES DEL CORTE ******7111 $ 100.00",
			},
		},
	}
}

func TestBBVACreditParse(t *testing.T) {
	p := NewBBVACredit()

	meta, recs, err := p.Parse(context.Background(), source.NewReplay(creditStatement()))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "4152313XXXXXX711", meta.AccountID)
	require.NotNil(t, meta.ClosingBalance)
	assert.Equal(t, "4366.66", meta.ClosingBalance.String())

	purchase := recs[0]
	assert.Equal(t, "08/01/25", purchase.DateText)
	assert.Equal(t, "09/01/25", purchase.SecondDateText)
	assert.Equal(t, "OXXO MONTERREY", purchase.Description)
	assert.Equal(t, "399.00", purchase.Amount(models.RoleAmount))
	assert.Contains(t, purchase.Detail, "RFC:AME 1404027R0")
	assert.Contains(t, purchase.Detail, "REF:******7111")

	payment := recs[1]
	assert.Equal(t, "PAGO TDC", payment.Description)
	assert.Equal(t, "-12,432.34", payment.Amount(models.RoleAmount))
	assert.Contains(t, payment.Detail, "REF:******0110")
}

func TestBBVACreditStopsAtSummaryTable(t *testing.T) {
	p := NewBBVACredit()

	_, recs, err := p.Parse(context.Background(), source.NewReplay(creditStatement()))
	require.NoError(t, err)
	for _, r := range recs {
		assert.NotEqual(t, "DESPUES DEL CORTE", r.Description)
	}
}

func TestBBVACreditSkipsBoilerplate(t *testing.T) {
	pages := []*source.Page{
		{
			Index: 0,
			Lines: []string{
				"Estimado Tarjetahabiente gracias por su preferencia",
				"Linea BBVA 55 5226 2663",
				"Av. Paseo de la Reforma 510",
				"08/01/25 09/01/25 FARMACIA GUADALUPE FGU 950432H11 ******7111 $ 250.50",
			},
		},
	}
	p := NewBBVACredit()

	_, recs, err := p.Parse(context.Background(), source.NewReplay(pages))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "FARMACIA GUADALUPE", recs[0].Description)
}
