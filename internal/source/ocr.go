package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/bancosreader/extractor/internal/models"
)

// ocrDPI is the render resolution for OCR. 300 DPI is the sweet spot for
// tesseract on statement-sized type.
const ocrDPI = 300

// OCRSource handles scanned/image-based PDFs that carry no text layer.
// Pages are rendered with pdftoppm, pre-processed for contrast, and read
// with tesseract in TSV mode so word bounding boxes survive into fragments.
// Requires poppler-utils and tesseract-ocr on PATH.
type OCRSource struct {
	tmpDir string
	images []string
	pos    int
}

// OpenOCR renders the document's pages and prepares them for OCR. The
// actual recognition happens lazily, one page per Next call.
func OpenOCR(path string) (Source, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm not available (install poppler-utils): %v", models.ErrSourceUnavailable, err)
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return nil, fmt.Errorf("%w: tesseract not available (install tesseract-ocr): %v", models.ErrSourceUnavailable, err)
	}

	tmpDir, err := os.MkdirTemp("", "ocr-pages-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.Command("pdftoppm", "-r", strconv.Itoa(ocrDPI), "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: pdftoppm failed: %v (%s)", models.ErrSourceUnavailable, err, string(out))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("reading temp dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			images = append(images, filepath.Join(tmpDir, e.Name()))
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: pdftoppm produced no page images", models.ErrSourceUnavailable)
	}

	return &OCRSource{tmpDir: tmpDir, images: images}, nil
}

func (s *OCRSource) Next(ctx context.Context) (*Page, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.pos >= len(s.images) {
			return nil, io.EOF
		}
		img := s.images[s.pos]
		s.pos++
		idx := s.pos

		enhanced, err := enhanceForOCR(img)
		if err != nil {
			// Recognition on the raw render still beats skipping the page.
			enhanced = img
		}

		frags, err := runTesseractTSV(ctx, enhanced, idx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tesseract warning for %s: %v\n", img, err)
			continue
		}
		if len(frags) == 0 {
			continue
		}
		return &Page{Index: idx, Fragments: frags, Lines: linesFromFragments(frags)}, nil
	}
}

func (s *OCRSource) Close() error {
	return os.RemoveAll(s.tmpDir)
}

// enhanceForOCR applies a contrast/sharpen chain that markedly improves
// tesseract accuracy on photographed or faded statements.
func enhanceForOCR(path string) (string, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening page image: %w", err)
	}
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustGamma(img, 1.2)

	out := strings.TrimSuffix(path, ".png") + "-prep.png"
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("saving processed image: %w", err)
	}
	return out, nil
}

// runTesseractTSV OCRs one page image and converts word-level TSV rows into
// positioned fragments. Pixel coordinates are scaled back into PDF points
// so positional layout hints hold for both source implementations.
func runTesseractTSV(ctx context.Context, imgPath string, pageIndex int) ([]models.Fragment, error) {
	outBase := strings.TrimSuffix(imgPath, ".png") + "-ocr"
	// PSM 4: single column of variable-size text, the usual statement shape.
	cmd := exec.CommandContext(ctx, "tesseract", imgPath, outBase, "-l", "spa+eng", "--psm", "4", "tsv")
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("tesseract failed: %v (%s)", err, string(out))
	}

	data, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return nil, fmt.Errorf("reading tsv output: %w", err)
	}

	const scale = 72.0 / float64(ocrDPI)
	var frags []models.Fragment
	for i, line := range strings.Split(string(data), "\n") {
		if i == 0 { // header row
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		// level 5 = word
		if cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		left, err1 := strconv.Atoi(cols[6])
		top, err2 := strconv.Atoi(cols[7])
		width, err3 := strconv.Atoi(cols[8])
		height, err4 := strconv.Atoi(cols[9])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		frags = append(frags, models.Fragment{
			Text: text,
			Page: pageIndex,
			X0:   float64(left) * scale,
			Y0:   float64(top) * scale,
			X1:   float64(left+width) * scale,
			Y1:   float64(top+height) * scale,
		})
	}
	return frags, nil
}
