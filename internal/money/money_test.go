package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	cases := map[string]int64{
		"25":        2500,
		"25.00":     2500,
		"25,5":      2550,
		"R$ 25,00":  2500,
		"1.234,56":  123456,
		"0.005":     1,
		"  12.3  ":  1230,
		"R$1.000,0": 100000,
	}
	for in, want := range cases {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseCents_Invalid(t *testing.T) {
	for _, in := range []string{"", "R$", "abc", "1,2,3"} {
		_, err := ParseCents(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 25,00", Format(2500))
	assert.Equal(t, "R$ 0,05", Format(5))
	assert.Equal(t, "R$ 1.234,56", Format(123456))
	assert.Equal(t, "R$ 1.000.000,00", Format(100000000))
	assert.Equal(t, "-R$ 12,00", Format(-1200))
}

func TestCentsDecimalRoundTrip(t *testing.T) {
	assert.True(t, FromCents(2550).Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, int64(2550), ToCents(FromCents(2550)))
}
