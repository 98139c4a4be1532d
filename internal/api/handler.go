// Package api exposes the extraction pipeline over HTTP. One handler accepts
// a statement upload and returns the parsed transactions as JSON plus an
// inline CSV rendering.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bancosreader/extractor/internal/export"
	"github.com/bancosreader/extractor/internal/models"
	"github.com/bancosreader/extractor/internal/pipeline"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// ConvertResponse is the JSON body of POST /api/convert.
type ConvertResponse struct {
	Success      bool                  `json:"success"`
	Error        string                `json:"error,omitempty"`
	Status       string                `json:"status,omitempty"`
	Institution  string                `json:"institution,omitempty"`
	Product      string                `json:"product,omitempty"`
	Confidence   float64               `json:"confidence,omitempty"`
	Account      *AccountInfo          `json:"account,omitempty"`
	Transactions []TransactionJSON     `json:"transactions"`
	Rejected     []RecordErrorJSON     `json:"rejected,omitempty"`
	CSV          string                `json:"csv,omitempty"`
	TotalDebit   string                `json:"totalDebit"`
	TotalCredit  string                `json:"totalCredit"`
	Count        int                   `json:"count"`
}

// AccountInfo is the statement metadata block of the response.
type AccountInfo struct {
	Number         string `json:"number,omitempty"`
	Currency       string `json:"currency,omitempty"`
	PeriodStart    string `json:"periodStart,omitempty"`
	PeriodEnd      string `json:"periodEnd,omitempty"`
	OpeningBalance string `json:"openingBalance,omitempty"`
	ClosingBalance string `json:"closingBalance,omitempty"`
}

// TransactionJSON is one transaction in the response. Amounts travel as
// strings to keep decimal precision out of float hands.
type TransactionJSON struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Page        int    `json:"page"`
	Detail      string `json:"detail,omitempty"`
}

// RecordErrorJSON reports one rejected record.
type RecordErrorJSON struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
	Error string `json:"error"`
}

// Handler serves the API against one pipeline.
type Handler struct {
	Pipeline *pipeline.Pipeline
	Log      zerolog.Logger
}

// Routes registers the API endpoints.
func (h *Handler) Routes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/convert", h.HandleConvert)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleConvert accepts a multipart PDF upload in form field "file" and runs
// it through the pipeline. Document-level outcomes map onto HTTP statuses:
// skipped → 422, failed → 422, success and partial → 200.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		return writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to create temp file.")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fh, tmpPath); err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	res := h.Pipeline.Process(c.Context(), tmpPath)
	res.Path = filepath.Base(fh.Filename)
	h.Log.Info().
		Str("doc", res.ID).
		Str("file", res.Path).
		Str("status", string(res.Status)).
		Msg("upload processed")

	switch res.Status {
	case pipeline.StatusSuccess, pipeline.StatusPartial:
		return c.JSON(h.respond(res))
	case pipeline.StatusSkipped:
		if errors.Is(res.Err, models.ErrUnclassified) {
			return writeError(c, fiber.StatusUnprocessableEntity, "Statement not recognized.")
		}
		return writeError(c, fiber.StatusUnprocessableEntity, res.Err.Error())
	default:
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("Processing failed: %v", res.Err))
	}
}

func (h *Handler) respond(res *pipeline.DocumentResult) ConvertResponse {
	var csvBuf bytes.Buffer
	sink := &export.CSVSink{IncludeMetadata: true}
	if err := sink.WriteTo(&csvBuf, res); err != nil {
		h.Log.Warn().Err(err).Str("doc", res.ID).Msg("inline CSV rendering failed")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	txns := make([]TransactionJSON, 0, len(res.Transactions))
	for _, t := range res.Transactions {
		if t.Amount.IsNegative() {
			totalDebit = totalDebit.Add(t.Amount.Neg())
		} else {
			totalCredit = totalCredit.Add(t.Amount)
		}
		txns = append(txns, TransactionJSON{
			Date:        t.Date.Format("2006-01-02"),
			Description: t.Description,
			Category:    string(t.Category),
			Amount:      t.Amount.StringFixed(2),
			Page:        t.Page,
			Detail:      t.Detail,
		})
	}

	rejected := make([]RecordErrorJSON, 0, len(res.RecordErrors))
	for _, re := range res.RecordErrors {
		rejected = append(rejected, RecordErrorJSON{
			Row:   re.Row,
			Field: string(re.Field),
			Value: re.Value,
			Error: re.Err.Error(),
		})
	}

	resp := ConvertResponse{
		Success:      true,
		Status:       string(res.Status),
		Institution:  res.Identity.Institution,
		Product:      string(res.Identity.Product),
		Confidence:   res.Identity.Confidence,
		Transactions: txns,
		Rejected:     rejected,
		CSV:          csvBuf.String(),
		TotalDebit:   totalDebit.StringFixed(2),
		TotalCredit:  totalCredit.StringFixed(2),
		Count:        len(txns),
	}
	if m := res.Metadata; m != nil {
		acc := &AccountInfo{Number: m.AccountID, Currency: m.Currency}
		if m.PeriodStart != nil {
			acc.PeriodStart = m.PeriodStart.Format("2006-01-02")
		}
		if m.PeriodEnd != nil {
			acc.PeriodEnd = m.PeriodEnd.Format("2006-01-02")
		}
		if m.OpeningBalance != nil {
			acc.OpeningBalance = m.OpeningBalance.StringFixed(2)
		}
		if m.ClosingBalance != nil {
			acc.ClosingBalance = m.ClosingBalance.StringFixed(2)
		}
		resp.Account = acc
	}
	return resp
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ConvertResponse{
		Success:      false,
		Error:        msg,
		Transactions: []TransactionJSON{},
	})
}
