package trading

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02 15:04:05"

// money renders d as "$1,234.56"; negatives keep the sign after the dollar.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return "$" + sign + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func nullMoney(d decimal.NullDecimal, missing string) string {
	if !d.Valid {
		return missing
	}
	return money(d.Decimal)
}

func nullQty(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.String()
}

func timestamp(t *time.Time, missing string) string {
	if t == nil || t.IsZero() {
		return missing
	}
	return t.UTC().Format(timestampLayout)
}

// title upper-cases the first letter of every letter run and lower-cases the
// rest, so "partially_filled" becomes "Partially_Filled".
func title(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

func boolText(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
