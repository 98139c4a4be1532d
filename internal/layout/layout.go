// Package layout reconstructs logical table rows from positioned text
// fragments. It is shared across all statement parsers: each parser supplies
// a layout hint (expected columns and tolerances) and gets back ordered rows
// with cells keyed by column role.
package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/bancosreader/extractor/internal/models"
)

// Column is one expected column of the transaction table: a role plus the
// horizontal range its values occupy.
type Column struct {
	Role models.ColumnRole
	Min  float64
	Max  float64
}

// Center returns the midpoint of the column range.
func (c Column) Center() float64 { return (c.Min + c.Max) / 2 }

// Tolerances are the named fuzz factors of reconstruction. They are
// configuration, not constants: every layout tunes them independently.
type Tolerances struct {
	// RowBand is the vertical distance within which fragments belong to
	// the same row.
	RowBand float64
	// ColumnSlack widens each column range when matching fragment centers.
	ColumnSlack float64
	// DropBeyond is the maximum distance from the nearest column at which
	// a stray fragment is still attached to it; farther fragments are
	// dropped and counted.
	DropBeyond float64
}

// DefaultTolerances work for the common 10-12pt statement typography.
func DefaultTolerances() Tolerances {
	return Tolerances{RowBand: 3.5, ColumnSlack: 12, DropBeyond: 60}
}

// Hint tells the reconstructor what the calling parser expects of the page.
type Hint struct {
	Columns []Column
	Tol     Tolerances
	// DateLike and AmountLike classify tokens for the noise filter. Nil
	// means the generic patterns below.
	DateLike   func(string) bool
	AmountLike func(string) bool
}

// Row is one reconstructed logical row.
type Row struct {
	Index int
	Page  int
	Y     float64
	Cells map[models.ColumnRole]string
}

// Cell returns the text assigned to a role, "" when empty.
func (r Row) Cell(role models.ColumnRole) string { return r.Cells[role] }

// Result carries the reconstructed rows plus diagnostics. Dropped counts
// fragments that sat too far outside every known column; reconstruction is
// lossy there by design of the hint, and callers surface the count.
type Result struct {
	Rows    []Row
	Dropped int
}

var (
	genericDatePattern   = regexp.MustCompile(`^\d{1,2}[-/](?:\d{1,2}|[A-ZÁÉÍÓÚa-záéíóú]{3})(?:[-/]\d{2,4})?$`)
	genericAmountPattern = regexp.MustCompile(`^-?\$?\s?[\d.,]*\d[.,]\d{2}$`)
)

// DateLikeToken reports whether a token looks like a statement date
// (12/JUL, 08/01/25, 15-ENE-2024 and similar).
func DateLikeToken(s string) bool { return genericDatePattern.MatchString(strings.TrimSpace(s)) }

// AmountLikeToken reports whether a token looks like a monetary amount.
func AmountLikeToken(s string) bool { return genericAmountPattern.MatchString(strings.TrimSpace(s)) }

// Reconstruct groups a page's fragments into rows, assigns each fragment to
// a column, filters page furniture, and merges wrapped description lines
// into the transaction row above them. The output is deterministic: equal
// input always yields equal rows.
func Reconstruct(frags []models.Fragment, hint Hint) Result {
	if len(hint.Columns) == 0 || len(frags) == 0 {
		return Result{}
	}
	dateLike := hint.DateLike
	if dateLike == nil {
		dateLike = DateLikeToken
	}
	amountLike := hint.AmountLike
	if amountLike == nil {
		amountLike = AmountLikeToken
	}

	clusters := clusterRows(frags, hint.Tol.RowBand)

	var res Result
	for _, cluster := range clusters {
		cells := make(map[models.ColumnRole]string, len(hint.Columns))
		hasDate, hasAmount := false, false
		for _, f := range cluster {
			col, ok := assignColumn(f, hint.Columns, hint.Tol)
			if !ok {
				res.Dropped++
				continue
			}
			appendCell(cells, col.Role, f.Text)
			if dateLike(f.Text) {
				hasDate = true
			}
			if amountLike(f.Text) {
				hasAmount = true
			}
		}
		if len(cells) == 0 {
			continue
		}

		if !hasDate && !hasAmount {
			// No date and no amount: either page furniture or a wrapped
			// description line. Wrapped lines continue the row above.
			desc := strings.TrimSpace(strings.Join(cellValues(cells), " "))
			if desc != "" && len(res.Rows) > 0 {
				last := &res.Rows[len(res.Rows)-1]
				appendCell(last.Cells, models.RoleDescription, desc)
			}
			continue
		}

		res.Rows = append(res.Rows, Row{
			Index: len(res.Rows),
			Page:  cluster[0].Page,
			Y:     cluster[0].Y0,
			Cells: cells,
		})
	}
	return res
}

// clusterRows groups fragments into vertical bands, ordered top to bottom.
// Fragments are first sorted by (Y, X) so the grouping is stable.
func clusterRows(frags []models.Fragment, band float64) [][]models.Fragment {
	sorted := make([]models.Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y0 != sorted[j].Y0 {
			return sorted[i].Y0 < sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var clusters [][]models.Fragment
	var current []models.Fragment
	currentY := math.Inf(-1)
	for _, f := range sorted {
		if len(current) > 0 && math.Abs(f.Y0-currentY) > band {
			clusters = append(clusters, current)
			current = nil
		}
		if len(current) == 0 {
			currentY = f.Y0
		}
		current = append(current, f)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	// Re-sort each band left to right; the primary sort interleaves X only
	// for identical Y values.
	for _, c := range clusters {
		sort.SliceStable(c, func(i, j int) bool { return c[i].X0 < c[j].X0 })
	}
	return clusters
}

// assignColumn matches a fragment to a column: first containment in the
// slack-widened range, then nearest column within DropBeyond.
func assignColumn(f models.Fragment, cols []Column, tol Tolerances) (Column, bool) {
	x := f.XCenter()

	bestIdx := -1
	bestDist := math.Inf(1)
	for i, c := range cols {
		if x >= c.Min-tol.ColumnSlack && x <= c.Max+tol.ColumnSlack {
			d := math.Abs(x - c.Center())
			if d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
	}
	if bestIdx >= 0 {
		return cols[bestIdx], true
	}

	// Fallback: nearest column edge within DropBeyond.
	for i, c := range cols {
		d := math.Min(math.Abs(x-c.Min), math.Abs(x-c.Max))
		if d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	if bestIdx >= 0 && bestDist <= tol.DropBeyond {
		return cols[bestIdx], true
	}
	return Column{}, false
}

func appendCell(cells map[models.ColumnRole]string, role models.ColumnRole, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if prev := cells[role]; prev != "" {
		cells[role] = prev + " " + text
	} else {
		cells[role] = text
	}
}

func cellValues(cells map[models.ColumnRole]string) []string {
	// Deterministic order for joining stray cells.
	roles := []models.ColumnRole{
		models.RoleDate, models.RoleDate2, models.RoleCode, models.RoleDescription,
		models.RoleDebit, models.RoleCredit, models.RoleAmount, models.RoleBalance,
	}
	var out []string
	for _, role := range roles {
		if v := cells[role]; v != "" {
			out = append(out, v)
		}
	}
	return out
}
