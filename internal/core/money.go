// Money parsing and JSON handling. Amounts are stored as integer cents to
// keep arithmetic exact; the API reads and writes plain decimal numbers.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to cents with half-up rounding on
// the third decimal place. It accepts both dot and comma separators and
// rejects empty, signed, non-numeric and non-positive values with
// ErrInvalidAmount.
//
//	ParseAmount("12.34") -> 1234
//	ParseAmount("0.01")  -> 1
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("-5")    -> ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// String renders the amount as a plain decimal, e.g. "12.34".
func (m Money) String() string {
	neg := ""
	cents := m.Cents
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}

// MarshalJSON emits the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
// Values that are numeric but out of range (zero, negative) are rejected
// here so that a bad amount surfaces as ErrInvalidAmount, matching the
// validation the handlers perform on raw input.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	cents, err := ParseAmount(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
