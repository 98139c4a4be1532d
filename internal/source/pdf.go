package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bancosreader/extractor/internal/models"
)

// letterHeight is the fallback page height when the MediaBox cannot be read.
const letterHeight = 792.0

// columnGap is the horizontal gap (in PDF units) between fragments on one
// row that marks a column boundary when rebuilding plain lines.
const columnGap = 15.0

// PDFSource extracts positioned text from a native (text-layer) PDF using
// the ledongthuc/pdf library, one page per Next call. When the library
// cannot decode the file, OpenPDF falls back to the external pdftotext
// command, which yields lines without positions.
type PDFSource struct {
	f       io.Closer
	r       *pdf.Reader
	page    int
	numPage int
}

// OpenPDF opens a document for native text extraction. It returns
// ErrSourceUnavailable (wrapped) when neither the library nor pdftotext can
// read the file.
func OpenPDF(path string) (Source, error) {
	src, err := openWithLibrary(path)
	if err == nil {
		return src, nil
	}
	// Library failed outright; pdftotext handles some encodings it cannot.
	if fallback, fbErr := openWithPdftotext(path); fbErr == nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
}

func openWithLibrary(path string) (src Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	n := r.NumPage()
	if n == 0 {
		f.Close()
		return nil, fmt.Errorf("pdf has no pages")
	}
	return &PDFSource{f: f, r: r, page: 1, numPage: n}, nil
}

func (s *PDFSource) Next(ctx context.Context) (p *Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed on page %d: %v", s.page, r)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.page > s.numPage {
			return nil, io.EOF
		}
		idx := s.page
		s.page++

		page := s.r.Page(idx)
		if page.V.IsNull() {
			continue
		}
		frags := fragmentsFromContent(page, idx)
		lines := linesFromFragments(frags)
		if len(lines) == 0 {
			// Some PDFs expose text only through the plain-text path.
			if text, err := page.GetPlainText(nil); err == nil {
				for _, l := range strings.Split(text, "\n") {
					if l = strings.TrimSpace(l); l != "" {
						lines = append(lines, l)
					}
				}
			}
		}
		return &Page{Index: idx, Fragments: frags, Lines: lines}, nil
	}
}

func (s *PDFSource) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

// fragmentsFromContent converts the page's raw text objects into fragments.
// PDF Y grows bottom-to-top; fragments are flipped so Y grows downward and
// row order matches reading order.
func fragmentsFromContent(page pdf.Page, index int) []models.Fragment {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}
	height := pageHeight(page)

	frags := make([]models.Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		h := t.FontSize
		if h <= 0 {
			h = 10
		}
		frags = append(frags, models.Fragment{
			Text: t.S,
			Page: index,
			X0:   t.X,
			X1:   t.X + t.W,
			Y0:   height - t.Y - h,
			Y1:   height - t.Y,
		})
	}
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y0 != frags[j].Y0 {
			return frags[i].Y0 < frags[j].Y0
		}
		return frags[i].X0 < frags[j].X0
	})
	return frags
}

func pageHeight(page pdf.Page) float64 {
	defer func() { recover() }()
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return letterHeight
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return letterHeight
	}
	return h
}

// linesFromFragments rebuilds row-ordered plain text: fragments grouped by
// rounded Y, sorted by X, with wide gaps rendered as a column separator.
func linesFromFragments(frags []models.Fragment) []string {
	if len(frags) == 0 {
		return nil
	}
	rows := make(map[int][]models.Fragment)
	for _, f := range frags {
		y := int(math.Round(f.Y0))
		rows[y] = append(rows[y], f)
	}
	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Ints(ys)

	var lines []string
	for _, y := range ys {
		items := rows[y]
		sort.Slice(items, func(a, b int) bool { return items[a].X0 < items[b].X0 })
		var sb strings.Builder
		var prevX1 float64
		for i, it := range items {
			if i > 0 {
				if it.X0-prevX1 > columnGap {
					sb.WriteString("  ")
				} else {
					sb.WriteString(" ")
				}
			}
			sb.WriteString(it.Text)
			prevX1 = it.X1
		}
		line := strings.TrimSpace(sb.String())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// pdftotextSource shells out to pdftotext (poppler-utils) per page. It
// carries no positional data, only lines; line-oriented parsers still work.
type pdftotextSource struct {
	path    string
	page    int
	numPage int
}

func openWithPdftotext(path string) (Source, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}
	n := pdfinfoPageCount(path)
	if n == 0 {
		// pdfinfo failed; try a single whole-document page.
		out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
		if err != nil || len(strings.TrimSpace(string(out))) == 0 {
			return nil, fmt.Errorf("pdftotext produced no output")
		}
		n = 1
	}
	return &pdftotextSource{path: path, page: 1, numPage: n}, nil
}

func (s *pdftotextSource) Next(ctx context.Context) (*Page, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.page > s.numPage {
			return nil, io.EOF
		}
		idx := s.page
		s.page++

		pg := strconv.Itoa(idx)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", pg, "-l", pg, s.path, "-").Output()
		if err != nil {
			continue
		}
		var lines []string
		for _, l := range strings.Split(string(out), "\n") {
			if l = strings.TrimRight(l, " \t\r"); strings.TrimSpace(l) != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) == 0 {
			continue
		}
		return &Page{Index: idx, Lines: lines}, nil
	}
}

func (s *pdftotextSource) Close() error { return nil }

func pdfinfoPageCount(path string) int {
	out, err := exec.Command("pdfinfo", path).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// Readable reports whether drained pages carry parseable text. The pipeline
// uses it to decide between native extraction and the OCR fallback.
func Readable(pages []*Page) bool {
	return readable(pages)
}
