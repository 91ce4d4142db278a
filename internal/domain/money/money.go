// Package money carries vendor amounts as integral minor units with
// arbitrary precision. Amounts are never narrowed to float64, on the wire or
// in arithmetic.
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when the vendor omits a currency.
const DefaultCurrency = "USD"

// Money is an amount of Currency expressed in its smallest unit (cents for USD).
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New returns minor units of currency.
func New(minor int64, currency string) Money {
	return Money{Amount: decimal.NewFromInt(minor), Currency: currency}
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Parse builds Money from a decimal string of minor units.
func Parse(minor, currency string) (Money, error) {
	v, err := decimal.NewFromString(minor)
	if err != nil {
		return Money{}, errors.Wrapf(err, "parse amount %q", minor)
	}
	if !isIntegral(v) {
		return Money{}, errors.Errorf("amount %q is not an integral number of minor units", minor)
	}
	return Money{Amount: v, Currency: currency}, nil
}

// Add returns m+o. Callers guarantee matching currencies; when m has no
// currency the result takes o's.
func (m Money) Add(o Money) Money {
	cur := m.Currency
	if cur == "" {
		cur = o.Currency
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: cur}
}

// Mul returns m multiplied by a quantity.
func (m Money) Mul(qty int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(qty))), Currency: m.Currency}
}

func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsZero() bool     { return m.Amount.IsZero() }

// Equal compares amount and currency.
func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount) && strings.EqualFold(m.Currency, o.Currency)
}

// SameCurrency reports whether m and o can be summed.
func (m Money) SameCurrency(o Money) bool {
	return m.Currency == "" || o.Currency == "" || strings.EqualFold(m.Currency, o.Currency)
}

// Major returns the amount in major units (dollars for USD).
func (m Money) Major() decimal.Decimal {
	return m.Amount.Shift(-exponent(m.Currency))
}

// Display formats m for people: "$12.50" for USD, "1250 JPY" for
// zero-exponent currencies, "12.50 EUR" otherwise.
func (m Money) Display() string {
	exp := exponent(m.Currency)
	major := m.Amount.Abs().Shift(-exp).StringFixed(exp)
	sign := ""
	if m.Amount.IsNegative() {
		sign = "-"
	}
	cur := strings.ToUpper(m.Currency)
	if cur == "" || cur == "USD" {
		return sign + "$" + major
	}
	return sign + major + " " + cur
}

func (m Money) String() string {
	return m.Display()
}

// Encode writes {"amount":<number>,"currency":"..."}.
func (m Money) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("amount")
	e.Num(jx.Num(m.Amount.String()))
	if m.Currency != "" {
		e.FieldStart("currency")
		e.Str(m.Currency)
	}
	e.ObjEnd()
}

// Decode reads a money object. The amount may be a JSON number or a numeric
// string; fractional amounts are rejected.
func (m *Money) Decode(d *jx.Decoder) error {
	if m == nil {
		return errors.New("invalid: unable to decode Money to nil")
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "amount":
			v, err := DecodeAmount(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"amount\"")
			}
			m.Amount = v
		case "currency":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode field \"currency\"")
			}
			m.Currency = s
		default:
			return d.Skip()
		}
		return nil
	})
}

// DecodeAmount reads an integral minor-unit amount from a number, a numeric
// string or null (zero).
func DecodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch tt := d.Next(); tt {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for amount", tt)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", raw)
	}
	if !isIntegral(v) {
		return decimal.Zero, errors.Errorf("amount %q is not an integral number of minor units", raw)
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	e := jx.Encoder{}
	m.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	return m.Decode(d)
}

func isIntegral(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(0))
}

// exponent returns the number of minor-unit digits for an ISO 4217 code.
func exponent(currency string) int32 {
	switch strings.ToUpper(currency) {
	case "JPY", "KRW", "VND", "CLP", "ISK", "UGX", "XAF", "XOF":
		return 0
	case "BHD", "KWD", "OMR", "JOD", "TND":
		return 3
	default:
		return 2
	}
}
