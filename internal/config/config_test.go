package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancosreader/extractor/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 0.3, cfg.ConfidenceThreshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.OCR)
	assert.Equal(t, "MXN", cfg.Currency)
	assert.Equal(t, "3000", cfg.Port)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EXTRACTOR_CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("EXTRACTOR_WORKERS", "8")
	t.Setenv("EXTRACTOR_OCR", "true")
	t.Setenv("EXTRACTOR_CURRENCY", "USD")
	t.Setenv("PORT", "8080")

	cfg := Load()
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.OCR)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EXTRACTOR_CONFIDENCE_THRESHOLD", "1.7")
	t.Setenv("EXTRACTOR_WORKERS", "zero")

	cfg := Load()
	assert.Equal(t, 0.3, cfg.ConfidenceThreshold)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadSignaturesBuiltin(t *testing.T) {
	sigs, err := LoadSignatures("")
	require.NoError(t, err)
	require.NotEmpty(t, sigs)

	seen := make(map[string]bool)
	for _, s := range sigs {
		assert.NotEmpty(t, s.Institution)
		assert.NotEmpty(t, s.Patterns)
		seen[s.Institution+"/"+string(s.Product)] = true
	}
	assert.True(t, seen["bbva/debit"])
	assert.True(t, seen["bbva/credit"])
	assert.True(t, seen["santander/debit"])
}

func TestLoadSignaturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigs.json")
	data := `[{"institution":"banorte","product":"debit","patterns":["BANORTE","ESTADO DE CUENTA"]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sigs, err := LoadSignatures(path)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "banorte", sigs[0].Institution)
	assert.Equal(t, models.ProductDebit, sigs[0].Product)
}

func TestLoadSignaturesErrors(t *testing.T) {
	_, err := LoadSignatures(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	_, err = LoadSignatures(path)
	assert.Error(t, err)
}

func TestDefaultRegistryCoversSignatures(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	for _, sig := range DefaultSignatures() {
		id := models.Identity{Institution: sig.Institution, Product: sig.Product, Confidence: 1}
		p, err := reg.Resolve(id)
		require.NoError(t, err, "no parser for %s/%s", sig.Institution, sig.Product)
		assert.NotEmpty(t, p.Name())
	}
}
