package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/bancosreader/extractor/internal/pipeline"
)

// CSVSink writes transactions as CSV, optionally preceded by statement
// metadata rendered as "# key,value" rows.
type CSVSink struct {
	IncludeMetadata bool
}

func (s *CSVSink) Ext() string { return "csv" }

// Write writes the document's transactions to a CSV file at path.
func (s *CSVSink) Write(path string, res *pipeline.DocumentResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return s.WriteTo(f, res)
}

// WriteTo writes CSV output to out.
func (s *CSVSink) WriteTo(out io.Writer, res *pipeline.DocumentResult) error {
	if s.IncludeMetadata {
		w := csv.NewWriter(out)
		for _, line := range metadataLines(res) {
			if err := w.Write(line); err != nil {
				return fmt.Errorf("failed to write metadata row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}

	rows := rowsFor(res)
	if err := gocsv.Marshal(&rows, out); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}
