package util

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// ParseAmountCents converts decimal text using "." as separator into
// integer cents, rounding half away from zero. ok is false when the text
// is not a number, is not strictly positive or does not fit in int64 cents.
func ParseAmountCents(input string) (cents int64, ok bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	scaled := d.Mul(hundred).Round(0)
	if scaled.GreaterThan(maxCents) {
		return 0, false
	}
	return scaled.IntPart(), true
}

// FormatBRL renders cents as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	fracText := strconv.FormatInt(frac, 10)
	if frac < 10 {
		fracText = "0" + fracText
	}
	return sign + "R$ " + b.String() + "," + fracText
}

// ProgressPercent is current/target as a whole percentage capped at 100.
func ProgressPercent(current, target int64) int {
	if target <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(current).Mul(hundred).Div(decimal.NewFromInt(target)).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}
