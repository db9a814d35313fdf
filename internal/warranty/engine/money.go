package engine

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const currencyPlaces = 2

// MaxAmount is the largest amount whose cents fit in an int64. The engine
// rejects job totals that would price any tier beyond it.
var MaxAmount = decimal.New(math.MaxInt64, -currencyPlaces)

var displayPrinter = message.NewPrinter(language.English)

// roundCurrency rounds half away from zero to cents.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

func fitsCents(d decimal.Decimal) bool {
	return roundCurrency(d).Abs().LessThanOrEqual(MaxAmount)
}

// Cents converts an amount to integer minor units. d must be within
// MaxAmount; every amount on a Quote is.
func Cents(d decimal.Decimal) int64 {
	return roundCurrency(d).Shift(currencyPlaces).IntPart()
}

// FormatAmount renders d with a currency symbol, thousands grouping and two decimals.
func FormatAmount(symbol string, d decimal.Decimal) string {
	return formatMoney(symbol, d)
}

func formatMoney(symbol string, d decimal.Decimal) string {
	rounded := roundCurrency(d)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	whole, frac, _ := strings.Cut(rounded.StringFixed(currencyPlaces), ".")
	return sign + symbol + groupThousands(rounded.Truncate(0), whole) + "." + frac
}

// groupThousands groups the integer digits of a non-negative amount. Values
// within int64 go through the locale printer; anything larger is grouped
// from its exact digit string.
func groupThousands(intPart decimal.Decimal, digits string) string {
	if bi := intPart.BigInt(); bi.IsInt64() {
		return displayPrinter.Sprintf("%d", bi.Int64())
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
