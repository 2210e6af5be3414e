package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidCurrency = errors.New("money: invalid currency code")

// Money is an amount in integer minor units of an ISO 4217 currency.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must is New for fixtures and tests; it panics on a bad currency.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Percent returns p% of amount rounded half away from zero to a whole minor unit.
func Percent(amount int64, p int64) int64 {
	return Round(decimal.NewFromInt(amount).Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100)))
}

// Prorate returns amount * part / whole rounded to a whole minor unit. A
// non-positive whole yields the full amount.
func Prorate(amount int64, part, whole int) int64 {
	if whole <= 0 {
		return amount
	}
	return Round(decimal.NewFromInt(amount).Mul(decimal.NewFromInt(int64(part))).Div(decimal.NewFromInt(int64(whole))))
}

// Round converts a decimal amount to integer minor units, half away from zero.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
