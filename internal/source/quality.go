package source

import (
	"strings"
	"unicode"
)

// textQuality returns the ratio of readable characters (ASCII letters,
// digits, common punctuation, whitespace, currency signs) to total
// characters. Identity-encoded fonts decode into accented garbage, so the
// check is deliberately strict ASCII rather than unicode.IsLetter.
func textQuality(lines []string) float64 {
	total := 0
	readable := 0
	for _, line := range lines {
		for _, r := range line {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				r == '.' || r == ',' || r == '-' || r == '/' || r == ':' ||
				r == ';' || r == '(' || r == ')' || r == '\'' || r == '"' ||
				r == '$' || r == '%' || r == '&' || r == '*' || r == '#' ||
				r == '@' || r == '!' || r == '?' || r == '+' || r == '=' ||
				r == 'Á' || r == 'É' || r == 'Í' || r == 'Ó' || r == 'Ú' || r == 'Ñ' ||
				r == 'á' || r == 'é' || r == 'í' || r == 'ó' || r == 'ú' || r == 'ñ' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// statementWords appear in virtually every Mexican bank statement. If an
// extraction contains none of them the text is almost certainly garbage.
var statementWords = []string{
	"estado de cuenta", "cuenta", "saldo", "cargos", "abonos",
	"movimientos", "fecha", "importe", "periodo", "cliente",
	"sucursal", "clabe", "tarjeta", "total", "pagina", "banco",
	"balance", "account", "statement",
}

func containsStatementWords(lines []string) bool {
	combined := strings.ToLower(strings.Join(lines, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// readable reports whether extracted pages carry enough real text to parse:
// more than 50 characters, over 60% readable, and at least one recognizable
// statement word.
func readable(pages []*Page) bool {
	var lines []string
	for _, p := range pages {
		lines = append(lines, p.Lines...)
	}
	n := 0
	for _, l := range lines {
		n += len(strings.TrimSpace(l))
	}
	if n <= 50 {
		return false
	}
	if textQuality(lines) <= 0.6 {
		return false
	}
	return containsStatementWords(lines)
}
