package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/bancosreader/extractor/internal/models"
)

// HeaderLabel names one column header to look for on the page, e.g.
// {RoleDebit, "CARGOS"}.
type HeaderLabel struct {
	Role models.ColumnRole
	Text string
}

// headerInflate widens the detected header box into a value range: amounts
// are typically right-aligned and wider than their header word.
const headerInflate = 35.0

// DetectColumns locates the table header row on a page and derives column
// ranges from the header word positions. All labels must appear within one
// vertical band for a candidate to count; when several header rows exist
// (repeated summary tables), the topmost wins. Returns false when the page
// has no complete header row.
func DetectColumns(frags []models.Fragment, labels []HeaderLabel, rowBand float64) ([]Column, bool) {
	if len(labels) == 0 {
		return nil, false
	}
	want := make(map[string]models.ColumnRole, len(labels))
	for _, l := range labels {
		want[normalizeHeader(l.Text)] = l.Role
	}

	type hit struct {
		frag models.Fragment
		role models.ColumnRole
		key  string
	}
	var hits []hit
	for _, f := range frags {
		k := normalizeHeader(f.Text)
		if role, ok := want[k]; ok {
			hits = append(hits, hit{frag: f, role: role, key: k})
		}
	}
	if len(hits) == 0 {
		return nil, false
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].frag.Y0 != hits[j].frag.Y0 {
			return hits[i].frag.Y0 < hits[j].frag.Y0
		}
		return hits[i].frag.X0 < hits[j].frag.X0
	})

	// Group hits into vertical bands and pick the first band containing
	// every wanted label.
	var group []hit
	groupY := math.Inf(-1)
	flush := func() ([]Column, bool) {
		if len(group) == 0 {
			return nil, false
		}
		seen := make(map[string]models.Fragment)
		for _, h := range group {
			if _, dup := seen[h.key]; !dup {
				seen[h.key] = h.frag
			}
		}
		if len(seen) < len(want) {
			return nil, false
		}
		cols := make([]Column, 0, len(want))
		for key, role := range want {
			f := seen[key]
			cols = append(cols, Column{Role: role, Min: f.X0 - headerInflate, Max: f.X1 + headerInflate})
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i].Center() < cols[j].Center() })
		return cols, true
	}

	for _, h := range hits {
		if len(group) > 0 && math.Abs(h.frag.Y0-groupY) > rowBand {
			if cols, ok := flush(); ok {
				return cols, true
			}
			group = nil
		}
		if len(group) == 0 {
			groupY = h.frag.Y0
		}
		group = append(group, h)
	}
	return flush()
}

// normalizeHeader upper-cases and strips the accents Mexican statement
// headers carry inconsistently (OPERACIÓN vs OPERACION).
func normalizeHeader(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U",
	)
	return replacer.Replace(s)
}
