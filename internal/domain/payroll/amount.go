package payroll

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount turns operator input into a number. Whitespace is dropped and a comma is
// accepted as the decimal separator. Anything unparseable resolves to 0.
func ParseAmount(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// ParseHours shares the amount rules; hours and money are entered the same way.
func ParseHours(raw string) float64 {
	return ParseAmount(raw)
}

func Round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// FormatHours renders a ledger hours value without trailing zeros ("53.33", "80").
func FormatHours(value float64) string {
	return decimal.NewFromFloat(value).Round(2).String()
}

func FormatMoney(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2)
}
