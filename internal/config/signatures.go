package config

import (
	"github.com/bancosreader/extractor/internal/classify"
	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/parser"
	"github.com/bancosreader/extractor/internal/registry"
)

// DefaultSignatures is the built-in identity table. Order matters: the
// credit-card signature is declared before the debit one so a tie between
// "BBVA" matches resolves toward the more specific product phrases.
func DefaultSignatures() []classify.Signature {
	return []classify.Signature{
		{
			Institution: "bbva",
			Product:     models.ProductCredit,
			Patterns: []string{
				"BBVA",
				"TARJETA DE CREDITO",
				"PAGO MINIMO",
				"FECHA LIMITE DE PAGO",
			},
		},
		{
			Institution: "bbva",
			Product:     models.ProductDebit,
			Patterns: []string{
				"BBVA",
				"DETALLE DE MOVIMIENTOS REALIZADOS",
				"CARGOS",
				"ABONOS",
			},
		},
		{
			Institution: "santander",
			Product:     models.ProductDebit,
			Patterns: []string{
				"SANTANDER",
				"ESTADO DE CUENTA",
				"DETALLE DE MOVIMIENTOS",
			},
		},
	}
}

// DefaultRegistry wires every built-in parser. It fails only on a duplicate
// registration, which is a programming error here.
func DefaultRegistry() (*registry.Registry, error) {
	r := registry.New()
	if err := r.Register("bbva", models.ProductDebit, func() parser.Parser {
		return parser.NewBBVADebit()
	}); err != nil {
		return nil, err
	}
	if err := r.Register("bbva", models.ProductCredit, func() parser.Parser {
		return parser.NewBBVACredit()
	}); err != nil {
		return nil, err
	}
	if err := r.Register("santander", models.ProductDebit, func() parser.Parser {
		return parser.NewSantanderDebit()
	}); err != nil {
		return nil, err
	}
	return r, nil
}
