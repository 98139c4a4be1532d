package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bancosreader/extractor/internal/pipeline"
)

const sheetName = "Transactions"

// XLSXSink writes transactions as a spreadsheet with a metadata block above
// the table.
type XLSXSink struct{}

func (s *XLSXSink) Ext() string { return "xlsx" }

// Write writes the document's transactions to an XLSX file at path.
func (s *XLSXSink) Write(path string, res *pipeline.DocumentResult) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	rowIdx := 1
	for _, line := range metadataLines(res) {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(sheetName, cell, &[]interface{}{line[0], line[1]}); err != nil {
			return fmt.Errorf("failed to write metadata row: %w", err)
		}
		rowIdx++
	}
	if rowIdx > 1 {
		rowIdx++
	}

	header := []interface{}{"Date", "Description", "Category", "Amount", "Display", "Page", "Detail"}
	cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
	if err := f.SetSheetRow(sheetName, cell, &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	if styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), rowIdx)
		_ = f.SetCellStyle(sheetName, cell, last, styleID)
	}
	rowIdx++

	for _, r := range rowsFor(res) {
		amount, _ := r.amountFloat()
		cells := []interface{}{r.Date, r.Description, r.Category, amount, r.Display, r.Page, r.Detail}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write transaction row: %w", err)
		}
		rowIdx++
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %q: %w", path, err)
	}
	return nil
}
