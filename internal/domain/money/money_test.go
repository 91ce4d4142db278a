package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		want string
	}{
		{name: "usd", m: New(1250, "USD"), want: "$12.50"},
		{name: "usd zero", m: New(0, "USD"), want: "$0.00"},
		{name: "no currency", m: New(5, ""), want: "$0.05"},
		{name: "negative", m: New(-100, "USD"), want: "-$1.00"},
		{name: "eur", m: New(999, "EUR"), want: "9.99 EUR"},
		{name: "jpy", m: New(1250, "JPY"), want: "1250 JPY"},
		{name: "kwd", m: New(1250, "KWD"), want: "1.250 KWD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Display())
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := New(350, "USD")
	total := Zero("").Add(a.Mul(3)).Add(New(25, "USD"))

	assert.True(t, total.Equal(New(1075, "USD")))
	assert.Equal(t, "USD", total.Currency)
	assert.True(t, a.SameCurrency(New(1, "usd")))
	assert.False(t, a.SameCurrency(New(1, "EUR")))
}

func TestJSON_PreservesWideAmounts(t *testing.T) {
	// Larger than float64 can represent exactly.
	raw := `{"amount":9007199254740993,"currency":"USD"}`

	var m Money
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, "9007199254740993", m.Amount.String())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestJSON_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "number", input: `{"amount":1500,"currency":"USD"}`, want: New(1500, "USD")},
		{name: "string amount", input: `{"amount":"1500","currency":"USD"}`, want: New(1500, "USD")},
		{name: "null amount", input: `{"amount":null,"currency":"USD"}`, want: New(0, "USD")},
		{name: "unknown field", input: `{"amount":1,"currency":"USD","extra":[1,2]}`, want: New(1, "USD")},
		{name: "fractional", input: `{"amount":12.5,"currency":"USD"}`, wantErr: true},
		{name: "bool amount", input: `{"amount":true}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(m), "got %s", m)
		})
	}
}

func TestParse(t *testing.T) {
	m, err := Parse("1999", "USD")
	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(1999)))
	assert.Equal(t, "19.99", m.Major().StringFixed(2))

	_, err = Parse("19.99", "USD")
	require.Error(t, err)
	_, err = Parse("abc", "USD")
	require.Error(t, err)
}
