// Package format renders amounts, phone numbers and dates the way the
// dashboard shows them.
package format

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Locale is the language used for digit grouping.
var Locale = language.Czech

var symbols = map[string]string{
	"CZK": "Kč",
	"PLN": "zł",
}

// CallingCodes are the country prefixes recognised by Phone.
var CallingCodes = []string{"420", "421"}

// Currency rounds amount to whole units and prints it with locale digit
// grouping followed by the currency symbol, e.g. "10 000 Kč".
func Currency(amount float64, code string) string {
	p := message.NewPrinter(Locale)
	out := p.Sprintf("%d", int64(math.Round(amount)))

	code = strings.ToUpper(strings.TrimSpace(code))
	if sym, ok := symbols[code]; ok {
		return out + " " + sym
	}
	if unit, err := currency.ParseISO(code); err == nil {
		return out + " " + unit.String()
	}
	return out
}

// Phone strips everything but digits and groups them by three. Numbers
// carrying a known calling code and at least 12 digits get a "+code" prefix.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if len(digits) >= 12 {
		for _, code := range CallingCodes {
			if strings.HasPrefix(digits, code) {
				return "+" + code + " " + groups(digits[len(code):])
			}
		}
	}
	return groups(digits)
}

func groups(digits string) string {
	parts := make([]string, 0, len(digits)/3+1)
	for len(digits) > 3 {
		parts = append(parts, digits[:3])
		digits = digits[3:]
	}
	if digits != "" {
		parts = append(parts, digits)
	}
	return strings.Join(parts, " ")
}

// Date prints t as DD.MM.YYYY.
func Date(t time.Time) string {
	return t.Format("02.01.2006")
}
