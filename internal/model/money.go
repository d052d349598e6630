package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCurrency is returned when a currency code is not three letters.
var ErrInvalidCurrency = errors.New("money: invalid currency code")

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "EUR"

// Money keeps amounts in minor units (cents) to avoid floating point
// rounding. Currency is an upper-case ISO 4217 code.
type Money struct {
	Cents    int64
	Currency string
}

// NewMoney validates the currency code and returns a Money value.
func NewMoney(cents int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Cents: cents, Currency: currency}, nil
}

// MustMoney is NewMoney that panics; meant for fixtures and constants.
func MustMoney(cents int64, currency string) Money {
	m, err := NewMoney(cents, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Multiply scales the amount by n.
func (m Money) Multiply(n int64) Money {
	return Money{Cents: m.Cents * n, Currency: m.Currency}
}

// Decimal renders the amount with two fraction digits, e.g. "15.00".
func (m Money) Decimal() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (m Money) String() string { return m.Decimal() + " " + m.Currency }

type moneyJSON struct {
	Amount   string `json:"amount"`
	Cents    int64  `json:"amount_cents"`
	Currency string `json:"currency"`
}

// MarshalJSON exposes both the decimal and the minor-unit amount.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Decimal(), Cents: m.Cents, Currency: m.Currency})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (m *Money) UnmarshalJSON(b []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	m.Cents = v.Cents
	m.Currency = v.Currency
	return nil
}
