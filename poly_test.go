package symkern

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolyString(t *testing.T) {
	tests := []struct {
		p    Poly
		want string
	}{
		{PolyOf(), "0"},
		{PolyOf(5), "5"},
		{PolyOf(-1, 0, 1), "x^2 - 1"},
		{PolyOf(3, -2), "-2*x + 3"},
		{PolyOf(2, -3, 1), "x^2 - 3*x + 2"},
		{PolyRat(big.NewRat(1, 2), big.NewRat(0, 1), big.NewRat(-3, 4)), "-3/4*x^2 + 1/2"},
		{PolyOf(0, 0, 0), "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.String())
	}
}

func TestPolyArithmetic(t *testing.T) {
	p := PolyOf(1, 2, 3)
	assert.Equal(t, 2, p.Degree())
	assert.Equal(t, "3", p.LC().RatString())
	assert.Equal(t, "0", p.Coeff(7).RatString())
	assert.True(t, p.Deriv().Equal(PolyOf(2, 6)))
	assert.Equal(t, "17", p.Eval(big.NewRat(2, 1)).RatString())

	assert.True(t, p.Sub(p).IsZero())
	assert.True(t, p.Add(PolyOf(-1, -2, -3)).IsZero())
	assert.True(t, PolyOf(1, 1).Pow(3).Equal(PolyOf(1, 3, 3, 1)))
	assert.True(t, PolyOf(2, 4).Monic().Equal(PolyRat(big.NewRat(1, 2), big.NewRat(1, 1))))
	assert.True(t, PolyOf(1, 1).Mul(PolyOf(-1, 1)).Equal(PolyOf(-1, 0, 1)))
	assert.True(t, PolyOf(1, 1).Mul(nil).IsZero())
	assert.Equal(t, -1, PolyOf().Degree())
}

func TestPolyDivMod(t *testing.T) {
	q, r, err := PolyOf(1, 0, 0, 1).DivMod(PolyOf(-1, 0, 1))
	require.NoError(t, err)
	assert.True(t, q.Equal(PolyOf(0, 1)), "quotient %s", q)
	assert.True(t, r.Equal(PolyOf(1, 1)), "remainder %s", r)

	q, r, err = PolyOf(1, 1).DivMod(PolyOf(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, q.IsZero())
	assert.True(t, r.Equal(PolyOf(1, 1)))

	_, _, err = PolyOf(1).DivMod(nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, _, err = RationalArithmetic{}.DivMod(PolyOf(1), nil)
	var ae *ArithmeticError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "divmod", ae.Op)
}

func TestPolyGCD(t *testing.T) {
	a := PolyOf(-1, 1).Mul(PolyOf(-2, 1))
	b := PolyOf(-1, 1).Mul(PolyOf(3, 1)).Scale(big.NewRat(4, 1))
	assert.True(t, PolyGCD(a, b).Equal(PolyOf(-1, 1)))

	g, s, tt := PolyExtGCD(a, b)
	assert.True(t, g.Equal(PolyOf(-1, 1)))
	assert.True(t, s.Mul(a).Add(tt.Mul(b)).Equal(g), "s*a + t*b = %s", s.Mul(a).Add(tt.Mul(b)))

	g, _, _ = PolyExtGCD(PolyOf(0, 1), PolyOf(1, 1))
	assert.True(t, g.Equal(PolyOf(1)))
}

func TestRationalFactor(t *testing.T) {
	tests := []struct {
		name    string
		p       Poly
		lc      string
		factors []FactorPower
	}{
		{"difference of squares", PolyOf(-2, 0, 2), "2", []FactorPower{
			{PolyOf(1, 1), 1},
			{PolyOf(-1, 1), 1},
		}},
		{"repeated root", PolyOf(0, 0, -1, 1), "1", []FactorPower{
			{PolyOf(0, 1), 2},
			{PolyOf(-1, 1), 1},
		}},
		{"irreducible", PolyOf(1, 0, 1), "1", []FactorPower{
			{PolyOf(1, 0, 1), 1},
		}},
		{"mixed", PolyOf(-1, 1).Mul(PolyOf(1, 0, 1)).Mul(PolyOf(-1, 1)), "1", []FactorPower{
			{PolyOf(-1, 1), 2},
			{PolyOf(1, 0, 1), 1},
		}},
		{"rational root", PolyOf(-1, 2), "2", []FactorPower{
			{PolyRat(big.NewRat(-1, 2), big.NewRat(1, 1)), 1},
		}},
	}
	arith := RationalArithmetic{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, factors, err := arith.Factor(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.lc, lc.RatString())
			if diff := cmp.Diff(tt.factors, factors); diff != "" {
				t.Errorf("factors (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRationalFactorRejects(t *testing.T) {
	_, _, err := RationalArithmetic{}.Factor(nil)
	assert.ErrorIs(t, err, ErrNotFactorable)

	_, _, err = RationalArithmetic{MaxDegree: 2}.Factor(PolyOf(1, 0, 0, 1))
	assert.ErrorIs(t, err, ErrNotFactorable)
	assert.ErrorContains(t, err, "degree 3 above 2")

	// 963761198400 has 6720 divisors.
	const c = 963761198400
	_, _, err = RationalArithmetic{}.Factor(PolyOf(-c, c-1, 1-c, c))
	assert.ErrorIs(t, err, ErrNotFactorable)
	assert.ErrorContains(t, err, "rational root candidates")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = RationalArithmetic{}.FactorContext(ctx, PolyOf(2, -3, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
