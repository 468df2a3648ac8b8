// Package price turns raw price evidence scraped from vendor pages into
// decimal amounts and rejects amounts that cannot be a product price.
package price

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var amountRegex = regexp.MustCompile(`\d+(\.\d{1,2})?`)

// NormalizeText parses a localized price such as "€ 1.234,56": "." groups
// thousands and "," separates decimals. ok is false when the text holds no
// amount.
func NormalizeText(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.ReplaceAll(cleaned, "EUR", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	if i := strings.LastIndex(cleaned, ","); i >= 0 {
		cleaned = cleaned[:i] + "." + cleaned[i+1:]
	}

	m := amountRegex.FindString(cleaned)
	if m == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// NormalizeAttr parses a machine formatted amount taken from an attribute or
// structured data ("52.95"). It is rounded to cents.
func NormalizeAttr(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Round(2), true
}
