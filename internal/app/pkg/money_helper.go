package pkg

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to cents. Every arithmetic step on money goes through it.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(price.Mul(decimal.NewFromInt(int64(quantity))))
}

func Percent(base, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(percent).Div(hundred))
}

func MinMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func FormatMoney(d decimal.Decimal) string {
	return "$" + RoundMoney(d).StringFixed(2)
}

// ParseMoney parses s into a rounded amount, returning fallback when s is blank or malformed.
func ParseMoney(s string, fallback decimal.Decimal) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return RoundMoney(d)
}
