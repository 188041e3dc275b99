package symkern

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recombine multiplies a decomposition of num/den back out by den.
func recombine(t *testing.T, d *Decomposition, den Poly) Poly {
	t.Helper()
	total := d.Quotient.Mul(den)
	for _, term := range d.Terms {
		assert.Less(t, term.Numer.Degree(), term.Factor.Degree(), "term %s over (%s)^%d", term.Numer, term.Factor, term.Power)
		cof, rem, err := den.DivMod(term.Factor.Pow(term.Power))
		require.NoError(t, err)
		require.True(t, rem.IsZero(), "%s does not divide %s", term.Factor, den)
		total = total.Add(term.Numer.Mul(cof))
	}
	return total
}

func TestDecomposeSimplePoles(t *testing.T) {
	den := PolyOf(-1, 1).Mul(PolyOf(-2, 1))
	var got Decomposition
	require.NoError(t, Decompose(PolyOf(1), den, RationalArithmetic{}, &got))

	want := Decomposition{
		Terms: []PartialFraction{
			{Numer: PolyOf(-1), Factor: PolyOf(-1, 1), Power: 1},
			{Numer: PolyOf(1), Factor: PolyOf(-2, 1), Power: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decomposition (-want +got):\n%s", diff)
	}
}

func TestDecomposeRecombines(t *testing.T) {
	tests := []struct {
		name     string
		num, den Poly
		terms    int
	}{
		{"improper", PolyOf(1, 0, 0, 1), PolyOf(-1, 0, 1), 1},
		{"repeated factor", PolyOf(1), PolyOf(0, 0, 1, 1), 3},
		{"non-monic", PolyOf(3), PolyOf(-2, 0, 2), 2},
		{"irreducible quadratic", PolyOf(0, 1), PolyOf(1, 0, 1).Mul(PolyOf(-1, 1)), 2},
		{"cubed", PolyOf(1, 1, 1), PolyOf(-1, 1).Pow(3), 3},
		{"rational root", PolyOf(5), PolyOf(-1, 3).Mul(PolyOf(1, 1)), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decomposition
			require.NoError(t, Decompose(tt.num, tt.den, RationalArithmetic{}, &d))
			assert.Len(t, d.Terms, tt.terms)
			got := recombine(t, &d, tt.den)
			assert.True(t, got.Equal(tt.num), "recombined to %s, want %s", got, tt.num)
		})
	}
}

func TestDecomposeRepeatedFactorOrder(t *testing.T) {
	var d Decomposition
	require.NoError(t, Decompose(PolyOf(1), PolyOf(0, 0, 1, 1), RationalArithmetic{}, &d))
	// 1/(x^2 (x+1)) = 1/(x+1) - 1/x + 1/x^2
	want := []PartialFraction{
		{Numer: PolyOf(1), Factor: PolyOf(1, 1), Power: 1},
		{Numer: PolyOf(-1), Factor: PolyOf(0, 1), Power: 1},
		{Numer: PolyOf(1), Factor: PolyOf(0, 1), Power: 2},
	}
	if diff := cmp.Diff(want, d.Terms); diff != "" {
		t.Errorf("terms (-want +got):\n%s", diff)
	}
}

type refusingArithmetic struct{ RationalArithmetic }

func (refusingArithmetic) Factor(Poly) (*big.Rat, []FactorPower, error) {
	return nil, nil, &ArithmeticError{Op: "factor", Err: ErrNotFactorable}
}

func TestDecomposeErrors(t *testing.T) {
	var d Decomposition
	err := Decompose(PolyOf(1), nil, RationalArithmetic{}, &d)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	d = Decomposition{}
	err = Decompose(PolyOf(1, 0, 1), PolyOf(-1, 0, 1), refusingArithmetic{}, &d)
	assert.ErrorIs(t, err, ErrNotFactorable)
	assert.True(t, d.Quotient.Equal(PolyOf(1)), "the quotient is delivered before factoring")
	assert.Empty(t, d.Terms)
}

func TestPolyExprConversion(t *testing.T) {
	p, ok := ExprToPoly(Plus(Power(x, N(2)), Times(N(3), x), N(1)), x)
	require.True(t, ok)
	assert.True(t, p.Equal(PolyOf(1, 3, 1)), "got %s", p)

	p, ok = ExprToPoly(Times(F(1, 2), Power(Plus(x, N(1)), N(2))), x)
	require.True(t, ok)
	assert.True(t, p.Equal(PolyRat(big.NewRat(1, 2), big.NewRat(1, 1), big.NewRat(1, 2))), "got %s", p)

	_, ok = ExprToPoly(Power(x, N(-1)), x)
	assert.False(t, ok)
	_, ok = ExprToPoly(Fn("Sin", x), x)
	assert.False(t, ok)
	_, ok = ExprToPoly(Power(x, F(1, 2)), x)
	assert.False(t, ok)

	assert.Equal(t, "Plus[2, Times[-1, Power[x, 2]]]", PolyToExpr(PolyOf(2, 0, -1), x).String())
	assert.Equal(t, "x", PolyToExpr(PolyOf(0, 1), x).String())
	assert.Equal(t, "0", PolyToExpr(nil, x).String())
}

func TestApartBuiltin(t *testing.T) {
	s := newTestSession(t)

	in := Fn("Apart", Power(Times(Plus(x, N(-1)), Plus(x, N(-2))), N(-1)), x)
	want := rewrite(t, s, Plus(
		Times(N(-1), Power(Plus(x, N(-1)), N(-1))),
		Power(Plus(x, N(-2)), N(-1)),
	))
	got := rewrite(t, s, in)
	assert.True(t, want.Equal(got), "got %s, want %s", got, want)

	// The single variable is found without naming it.
	got = rewrite(t, s, Fn("Apart", Power(Times(Plus(y, N(-1)), Plus(y, N(-2))), N(-1))))
	assert.Contains(t, got.String(), "Power[Plus[-2, y], -1]")

	got = rewrite(t, s, Fn("Apart", Plus(Power(x, N(2)), N(1)), x))
	assert.True(t, rewrite(t, s, Plus(Power(x, N(2)), N(1))).Equal(got), "got %s", got)

	assert.Equal(t, "Apart[Sin[x], x]", rewrite(t, s, Fn("Apart", Fn("Sin", x), x)).String())
}

func TestApartWithRefusingArithmetic(t *testing.T) {
	s := newTestSession(t, WithPolyArithmetic(refusingArithmetic{}))
	in := Fn("Apart", Power(Plus(Power(x, N(2)), N(-1)), N(-1)), x)
	assert.Equal(t, "Apart[Power[Plus[-1, Power[x, 2]], -1], x]", rewrite(t, s, in).String())
}

func TestApartGivesUpOnLargeRootSearch(t *testing.T) {
	s := newTestSession(t)
	k := N(963761198400)
	den := Times(Plus(Times(k, Power(x, N(2))), x, k), Plus(x, N(-1)))
	in := Fn("Apart", Power(den, N(-1)), x)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got, err := s.Rewrite(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Apart", HeadOf(got).String())
}

func TestApartStopsWithContext(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := Fn("Apart", Power(Times(Plus(x, N(-1)), Plus(x, N(-2))), N(-1)), x)
	_, err := s.Rewrite(ctx, in)
	var ab *AbortError
	require.ErrorAs(t, err, &ab)
	assert.Equal(t, "time", ab.Limit)
	assert.Equal(t, "Apart", ab.Head)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolynomialQuotientRemainder(t *testing.T) {
	s := newTestSession(t)
	got := rewrite(t, s, Fn("PolynomialQuotientRemainder",
		Plus(Power(x, N(3)), N(1)), Plus(Power(x, N(2)), N(-1)), x))
	assert.Equal(t, "List[x, Plus[1, x]]", got.String())

	got = rewrite(t, s, Fn("PolynomialQuotientRemainder", x, N(0), x))
	assert.Equal(t, "PolynomialQuotientRemainder[x, 0, x]", got.String())
}
