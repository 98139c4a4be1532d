package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bancosreader/extractor/internal/api"
	"github.com/bancosreader/extractor/internal/classify"
	"github.com/bancosreader/extractor/internal/config"
	"github.com/bancosreader/extractor/internal/export"
	"github.com/bancosreader/extractor/internal/logger"
	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/pipeline"
	"github.com/bancosreader/extractor/internal/source"
)

func main() {
	bankFlag := flag.String("bank", "", "Institution: bbva, santander (auto-classified if omitted; requires -product)")
	productFlag := flag.String("product", "", "Product: debit, credit (used with -bank)")
	formatFlag := flag.String("format", "csv", "Output format: csv, xlsx")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format extension)")
	workersFlag := flag.Int("workers", 0, "Batch concurrency (defaults to EXTRACTOR_WORKERS)")
	ocrFlag := flag.Bool("ocr", false, "Enable OCR fallback for scanned statements")
	signaturesFlag := flag.String("signatures", "", "JSON file overriding the built-in signature table")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of converting files")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Extractor

Converts Mexican bank statement PDFs (BBVA debit and credit, Santander
debit) into structured CSV or XLSX files.

Usage:
  extractor [flags] <input.pdf> [input2.pdf ...]
  extractor -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-classify institution and convert
  extractor estado_de_cuenta.pdf

  # Force the parser and write a spreadsheet
  extractor -bank=bbva -product=credit -format=xlsx statement.pdf

  # Convert a batch with 8 workers and OCR fallback
  extractor -workers=8 -ocr enero.pdf febrero.pdf marzo.pdf

  # Run the HTTP API
  extractor -serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("extractor v%s\n", api.Version)
		return
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if *workersFlag > 0 {
		cfg.Workers = *workersFlag
	}
	if *ocrFlag {
		cfg.OCR = true
	}

	sigs, err := config.LoadSignatures(*signaturesFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load signature table")
	}
	reg, err := config.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build parser registry")
	}

	opts := classify.DefaultOptions()
	opts.MinConfidence = cfg.ConfidenceThreshold
	classifier := classify.New(sigs, opts)

	popts := pipeline.Options{Workers: cfg.Workers}
	if cfg.OCR {
		popts.OCR = source.OpenOCR
	}
	if force, err := forcedIdentity(*bankFlag, *productFlag); err != nil {
		log.Fatal().Err(err).Msg("invalid -bank/-product")
	} else {
		popts.Force = force
	}

	pl := pipeline.New(classifier, reg, popts, log)

	if *serveFlag {
		app := fiber.New(fiber.Config{BodyLimit: 32 << 20})
		h := &api.Handler{Pipeline: pl, Log: log}
		h.Routes(app)
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	sink, err := export.ForFormat(*formatFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -format")
	}

	results := pl.ProcessBatch(context.Background(), flag.Args())
	failed := writeResults(results, sink, *outputFlag, log)

	sum := pipeline.Summarize(results)
	log.Info().
		Int("total", sum.Total).
		Int("success", sum.Success).
		Int("partial", sum.Partial).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("batch finished")

	if failed || sum.Success+sum.Partial == 0 {
		os.Exit(1)
	}
}

// forcedIdentity validates the -bank/-product pair. Both or neither.
func forcedIdentity(bank, product string) (*models.Identity, error) {
	if bank == "" && product == "" {
		return nil, nil
	}
	if bank == "" || product == "" {
		return nil, fmt.Errorf("-bank and -product must be given together")
	}
	p := models.Product(strings.ToLower(product))
	if p != models.ProductDebit && p != models.ProductCredit {
		return nil, fmt.Errorf("unknown product %q, use debit or credit", product)
	}
	return &models.Identity{
		Institution: strings.ToLower(bank),
		Product:     p,
		Confidence:  1,
	}, nil
}

// writeResults writes an output file per successful document. The -output
// path applies only when a single input was given.
func writeResults(results []*pipeline.DocumentResult, sink export.Sink, outputPath string, log zerolog.Logger) bool {
	failed := false
	for _, res := range results {
		rlog := log.With().Str("doc", res.ID).Str("path", res.Path).Logger()
		switch res.Status {
		case pipeline.StatusSuccess, pipeline.StatusPartial:
			out := outputPath
			if out == "" || len(results) > 1 {
				base := strings.TrimSuffix(res.Path, filepath.Ext(res.Path))
				out = base + "." + sink.Ext()
			}
			if err := sink.Write(out, res); err != nil {
				rlog.Error().Err(err).Msg("output write failed")
				failed = true
				continue
			}
			rlog.Info().Str("output", out).Int("transactions", len(res.Transactions)).Msg("converted")
		default:
			rlog.Warn().Err(res.Err).Str("status", string(res.Status)).Msg("not converted")
			failed = failed || res.Status == pipeline.StatusFailed
		}
	}
	return failed
}
