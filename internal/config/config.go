// Package config loads runtime settings from the environment and holds the
// default signature table. A .env file is honored when present; explicit
// environment variables win.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/bancosreader/extractor/internal/classify"
)

// Config is the resolved runtime configuration.
type Config struct {
	// ConfidenceThreshold is the minimum classifier confidence before a
	// document counts as recognized.
	ConfidenceThreshold float64
	// Workers bounds batch concurrency.
	Workers int
	// OCR enables the OCR fallback for unreadable text layers.
	OCR bool
	// Currency is the fallback currency code when a statement names none.
	Currency string
	// Port is the HTTP listen port for server mode.
	Port string
	// LogLevel selects the zerolog level.
	LogLevel string
}

// Load reads .env if present, then the environment, applying defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ConfidenceThreshold: envFloat("EXTRACTOR_CONFIDENCE_THRESHOLD", 0.3),
		Workers:             envInt("EXTRACTOR_WORKERS", 4),
		OCR:                 envBool("EXTRACTOR_OCR", false),
		Currency:            envString("EXTRACTOR_CURRENCY", "MXN"),
		Port:                envString("PORT", "3000"),
		LogLevel:            envString("EXTRACTOR_LOG_LEVEL", "info"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// LoadSignatures reads a JSON signature table from path. An empty path
// returns the built-in table.
func LoadSignatures(path string) ([]classify.Signature, error) {
	if path == "" {
		return DefaultSignatures(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature table %q: %w", path, err)
	}
	var sigs []classify.Signature
	if err := json.Unmarshal(data, &sigs); err != nil {
		return nil, fmt.Errorf("failed to parse signature table %q: %w", path, err)
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("signature table %q is empty", path)
	}
	return sigs, nil
}
