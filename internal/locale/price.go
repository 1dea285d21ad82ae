// Package locale parses and formats currency amounts written in Dutch
// notation: "€ 1.234,56", with "45,-" meaning a whole-euro amount.
package locale

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	currencyPrefix    = "€ "
	decimalSeparator  = ","
	thousandSeparator = "."
)

// ErrInvalidPrice is returned by ParseStrict when text holds no usable amount.
var ErrInvalidPrice = errors.New("invalid price format")

// Clean drops every character except digits, comma, period and hyphen.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// groupedThousands matches a whole amount with period thousand separators
// and no decimals, as in "1.234" or "12.345.678".
var groupedThousands = regexp.MustCompile(`^[1-9]\d{0,2}(\.\d{3})+$`)

// normalize turns cleaned Dutch notation into a string strconv can parse.
// A hyphen stands in for the "00" cents of a whole amount. Without a comma,
// periods are thousand separators when every group has three digits
// ("1.234" is 1234) and a decimal point otherwise ("3.5", "12.50").
func normalize(cleaned string) string {
	s := strings.ReplaceAll(cleaned, "-", "00")
	switch {
	case strings.Contains(s, decimalSeparator):
		s = strings.ReplaceAll(s, thousandSeparator, "")
		s = strings.Replace(s, decimalSeparator, ".", 1)
	case groupedThousands.MatchString(s), strings.Count(s, thousandSeparator) > 1:
		s = strings.ReplaceAll(s, thousandSeparator, "")
	}
	return s
}

// ParsePrice converts a display price to a number. Malformed input yields 0;
// it never fails.
func ParsePrice(text string) float64 {
	v, err := ParseStrict(text)
	if err != nil {
		return 0
	}
	return v
}

// ParseStrict is ParsePrice that reports malformed input instead of
// degrading to zero. The result is always finite and non-negative.
func ParseStrict(text string) (float64, error) {
	s := normalize(Clean(text))
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}
	return v, nil
}

// FormatPrice renders value as "€ 1.234,56", always with two decimals.
// NaN and infinities render as zero.
func FormatPrice(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	fixed := decimal.NewFromFloat(value).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, found := strings.Cut(fixed, ".")
	if !found {
		frac = "00"
	}
	if len(frac) == 1 {
		frac += "0"
	}

	return currencyPrefix + sign + groupThousands(whole) + decimalSeparator + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(thousandSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
