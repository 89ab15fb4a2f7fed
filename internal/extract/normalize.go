package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoDigits reports a raw value with nothing numeric left after cleaning.
// Callers treat it as "field absent", never as a failure of the page.
var ErrNoDigits = errors.New("no digits in value")

var (
	nonAmountChars = regexp.MustCompile(`[^0-9.,]`)
	nonDigitChars  = regexp.MustCompile(`\D`)
)

// Amount parses a pt-BR formatted money or decimal string into a float.
// "R$ 1.234,56" is 1234.56: periods are thousands separators and the comma
// is the decimal mark. Currency symbols and any other noise are stripped
// before parsing.
func Amount(raw string) (float64, error) {
	cleaned := nonAmountChars.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, ErrNoDigits
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q: %w", raw, err)
	}
	return v, nil
}

// CompositeAmount joins a whole amount with a separately rendered cents
// fragment: 199 and "90" make 199.90. When the fragment is empty or not
// purely numeric it reports ok=false and the whole amount stands alone.
func CompositeAmount(whole float64, fraction string) (float64, bool) {
	if fraction == "" || !allDigits(fraction) {
		return 0, false
	}
	cents, err := strconv.Atoi(fraction)
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(fmt.Sprintf("%d.%02d", int64(whole), cents), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Decimal parses a plain decimal that may use either mark: "4,8" as rendered
// on pt-BR pages, "4.8" as meta tags carry it. Money strings go through
// Amount instead, where a period is always a thousands separator.
func Decimal(raw string) (float64, error) {
	cleaned := nonAmountChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, ErrNoDigits
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed decimal %q: %w", raw, err)
	}
	return v, nil
}

// Count parses a digit-bearing string such as "3.026 avaliações" into a
// count by dropping every non-digit rune.
func Count(raw string) (int, error) {
	digits := nonDigitChars.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, ErrNoDigits
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("malformed count %q: %w", raw, err)
	}
	return n, nil
}

// soldOutTokens are stems matched case-insensitively inside stock messages.
// "últim" covers both "Último disponível" and "Últimas unidades".
var soldOutTokens = []string{"esgotado", "últim"}

// SoldOut reports whether a stock message says the listing cannot be bought
// right now. Callers keep three-state semantics: when no message was
// extracted at all, availability stays unknown and SoldOut is never asked.
func SoldOut(message string) bool {
	lower := strings.ToLower(message)
	for _, tok := range soldOutTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
