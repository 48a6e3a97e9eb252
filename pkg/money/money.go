// Package money holds monetary amounts as integer minor units
// alongside an ISO currency code. All arithmetic stays in minor
// units so amounts never pick up fractional cents.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

// Money is an amount in minor units of a currency. Amounts may be
// negative, for example provider commission lines.
type Money struct {
	Amount   int64          `json:"amount"`
	Currency enums.Currency `json:"currency"`
}

func New(amount int64, currency enums.Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero amount for the given currency.
func Zero(currency enums.Currency) Money {
	return Money{Currency: currency}
}

// SubUnitDivisor returns how many minor units make one major unit of
// the currency. JPY has no minor unit.
func SubUnitDivisor(currency enums.Currency) int64 {
	if currency == enums.CurrencyJPY {
		return 1
	}
	return 100
}

// FromMajor converts a major-unit amount to Money, truncating any
// precision beyond the currency's minor unit. 10.999 USD becomes
// 1099 cents, never 1100.
func FromMajor(value decimal.Decimal, currency enums.Currency) Money {
	divisor := decimal.NewFromInt(SubUnitDivisor(currency))
	return Money{
		Amount:   value.Mul(divisor).Truncate(0).IntPart(),
		Currency: currency,
	}
}

// Major returns the amount expressed in major units.
func (m Money) Major() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(SubUnitDivisor(m.Currency)))
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// MulInt scales the amount by a whole quantity such as a number of
// units or nights.
func (m Money) MulInt(factor int64) Money {
	return Money{Amount: m.Amount * factor, Currency: m.Currency}
}

// MulDecimal scales the amount by an arbitrary factor, truncating the
// result toward zero. Percentage lines use this so a 10% cut of 6050
// cents is 605, not 605.0 rounded up somewhere downstream.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.Amount).Mul(factor).Truncate(0)
	return Money{Amount: scaled.IntPart(), Currency: m.Currency}
}

// String renders the amount in major units, e.g. "60.50 USD".
func (m Money) String() string {
	places := int32(0)
	if SubUnitDivisor(m.Currency) == 100 {
		places = 2
	}
	return fmt.Sprintf("%s %s", m.Major().StringFixed(places), m.Currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("currency mismatch: %s vs %s", m.Currency, other.Currency))
	}
	return nil
}
