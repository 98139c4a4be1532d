package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Date shapes found across Mexican bank statements.
var (
	// 01/JUL — day plus Spanish month abbreviation, year elsewhere on the
	// statement cover.
	dayMonthPattern = regexp.MustCompile(`^(\d{2})/([A-ZÁÉÍÓÚ]{3})$`)
	// 08/01/25 or 08/01/2025 — day first.
	slashDatePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2,4})$`)
	// 15-ENE-2024
	dashDatePattern = regexp.MustCompile(`^(\d{1,2})-([A-ZÁÉÍÓÚ]{3})-(\d{4})$`)
	// 1,234.56 / 1.234,56 / -12,432.34, optional currency sign.
	amountTokenPattern = regexp.MustCompile(`^-?\$?\s?[\d.,]*\d[.,]\d{2}$`)
	// DEL 01/07/2025 AL 31/07/2025
	periodPattern = regexp.MustCompile(`DEL\s+(\d{2}/\d{2}/\d{4})\s+AL\s+(\d{2}/\d{2}/\d{4})`)
)

var spanishMonths = map[string]time.Month{
	"ENE": time.January, "FEB": time.February, "MAR": time.March,
	"ABR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AGO": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DIC": time.December,
}

// spanishMonth resolves a three-letter Spanish month abbreviation.
func spanishMonth(abbr string) (time.Month, bool) {
	m, ok := spanishMonths[stripAccents(strings.ToUpper(abbr))]
	return m, ok
}

func stripAccents(s string) string {
	return strings.NewReplacer("Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U").Replace(s)
}

// ParseDayMonth converts "01/JUL" plus the statement year to a date.
func ParseDayMonth(s string, year int) (time.Time, error) {
	m := dayMonthPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return time.Time{}, fmt.Errorf("not a day/month date: %q", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, ok := spanishMonth(m[2])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", m[2])
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// ParseSlashDate converts "08/01/25" or "08/01/2025" (day first) to a date.
func ParseSlashDate(s string) (time.Time, error) {
	m := slashDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("not a dd/mm/yy date: %q", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("out-of-range date: %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ParseDashDate converts "15-ENE-2024" to a date.
func ParseDashDate(s string) (time.Time, error) {
	m := dashDatePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return time.Time{}, fmt.Errorf("not a dd-mmm-yyyy date: %q", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, ok := spanishMonth(m[2])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", m[2])
	}
	year, _ := strconv.Atoi(m[3])
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// amountToken reports whether a token looks like a monetary amount.
func amountToken(s string) bool {
	return amountTokenPattern.MatchString(strings.TrimSpace(s))
}

// CleanAmount parses an amount in either separator convention: "1,234.56"
// and "1.234,56" both become 1234.56. Currency signs and spaces are
// stripped; a leading minus survives.
func CleanAmount(s string) (decimal.Decimal, error) {
	t := strings.TrimSpace(s)
	t = strings.ReplaceAll(t, "$", "")
	t = strings.ReplaceAll(t, " ", "")
	t = strings.ReplaceAll(t, " ", "")
	if t == "" || t == "-" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	hasComma := strings.Contains(t, ",")
	hasDot := strings.Contains(t, ".")
	switch {
	case hasComma && hasDot:
		// Decimal separator is whichever comes last.
		if strings.LastIndex(t, ",") > strings.LastIndex(t, ".") {
			t = strings.ReplaceAll(t, ".", "")
			t = strings.Replace(t, ",", ".", 1)
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	case hasComma:
		t = strings.Replace(t, ",", ".", 1)
	}
	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	return d, nil
}

// findPeriod extracts the statement period from cover text like
// "DEL 01/07/2025 AL 31/07/2025".
func findPeriod(text string) (start, end time.Time, ok bool) {
	m := periodPattern.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	s, err1 := ParseSlashDate(m[1])
	e, err2 := ParseSlashDate(m[2])
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

// findLabeledAmount scans lines for a label and returns the last amount
// token on the first line carrying it.
func findLabeledAmount(lines []string, labels ...string) (decimal.Decimal, bool) {
	for _, line := range lines {
		up := stripAccents(strings.ToUpper(line))
		matched := false
		for _, l := range labels {
			if strings.Contains(up, l) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		fields := strings.Fields(line)
		for i := len(fields) - 1; i >= 0; i-- {
			if amountToken(fields[i]) {
				if d, err := CleanAmount(fields[i]); err == nil {
					return d, true
				}
			}
		}
	}
	return decimal.Decimal{}, false
}

// findLabeledValue returns the token following a label on the first line
// carrying it, e.g. "No. de Cuenta 0123456789" → "0123456789". Matching is
// done rune-wise: accent stripping shrinks multi-byte characters, so a byte
// offset into the folded copy would not line up with the original line.
func findLabeledValue(lines []string, labels ...string) string {
	for _, line := range lines {
		runes := []rune(line)
		folded := foldRunes(runes)
		for _, l := range labels {
			label := foldRunes([]rune(l))
			idx := runeIndex(folded, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(string(runes[idx+len(label):]))
			rest = strings.TrimLeft(rest, ":. ")
			if f := strings.Fields(rest); len(f) > 0 {
				return f[0]
			}
		}
	}
	return ""
}

// foldRunes uppercases and strips accents one rune at a time, so indexes into
// the result line up with indexes into the input.
func foldRunes(runes []rune) []rune {
	folded := make([]rune, len(runes))
	for i, r := range runes {
		r = unicode.ToUpper(r)
		switch r {
		case 'Á':
			r = 'A'
		case 'É':
			r = 'E'
		case 'Í':
			r = 'I'
		case 'Ó':
			r = 'O'
		case 'Ú':
			r = 'U'
		}
		folded[i] = r
	}
	return folded
}

// runeIndex returns the index of needle in hay, -1 when absent.
func runeIndex(hay, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// normalizeLine collapses whitespace and non-breaking spaces.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, " ", " ")
	return strings.Join(strings.Fields(line), " ")
}

var currencyPattern = regexp.MustCompile(`\b(USD|EUR)\b`)

// detectCurrency looks for an explicit currency code on the cover, MXN by
// default.
func detectCurrency(text string) string {
	if m := currencyPattern.FindString(strings.ToUpper(text)); m != "" {
		return m
	}
	return "MXN"
}
